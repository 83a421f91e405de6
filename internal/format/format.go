// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// OptionsFromConfig maps the formatting config onto orchestrator options.
func OptionsFromConfig(cfg types.FormatConfig) Options {
	return Options{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		Workers:        cfg.Workers,
		MinLengthRatio: cfg.MinLengthRatio,
		MaxLengthRatio: cfg.MaxLengthRatio,
	}
}

// DefaultMaxChunkSize bounds one section per API call (24 KiB of Markdown).
const DefaultMaxChunkSize = 24 * 1024

// FormatFile reads cleaned Markdown from inPath, rewrites it section by
// section through rw, and writes the reassembled document to outPath. The
// worst case — every call failing — writes a byte-for-byte copy of the
// input, which is the documented degraded outcome.
func FormatFile(ctx context.Context, rw Rewriter, inPath, outPath string, cfg types.FormatConfig, w io.Writer) (Summary, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return Summary{}, fmt.Errorf("reading %s: %w", inPath, err)
	}

	maxChunk := cfg.MaxChunkSize
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkSize
	}

	sections := Chunk(string(data), maxChunk)
	fmt.Fprintf(w, "formatting %s: %d sections\n", inPath, len(sections))

	results := RewriteAll(ctx, rw, sections, OptionsFromConfig(cfg), w)
	doc, summary := ReassembleResults(results)

	if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
		return summary, fmt.Errorf("writing %s: %w", outPath, err)
	}

	fmt.Fprintf(w, "\nformatted: %s (%d rewritten, %d fallback of %d sections)\n",
		outPath, summary.Rewritten, summary.Fallback, summary.Total())
	return summary, nil
}
