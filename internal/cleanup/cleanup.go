// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// Stage1 runs the full deterministic pass over raw OCR Markdown: appendix
// truncation, artifact normalization, then paragraph reconstruction.
// Truncation is the only step that removes content; every non-whitespace
// character surviving it appears in the output.
func Stage1(text string, cfg types.CleanupConfig) string {
	if cfg.Truncate {
		text = TruncateAfterReferences(text)
	}
	text = NewNormalizer(cfg).Normalize(text)
	return Reconstruct(text)
}

// CleanFile reads raw OCR Markdown from inPath, applies Stage1, and writes
// the result to outPath. Progress goes to w.
func CleanFile(inPath, outPath string, cfg types.CleanupConfig, w io.Writer) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}

	fmt.Fprintf(w, "cleaning %s (%d chars)\n", inPath, len(raw))
	cleaned := Stage1(string(raw), cfg)

	if err := os.WriteFile(outPath, []byte(cleaned), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(w, "cleaned: %s (%d chars)\n", outPath, len(cleaned))
	return nil
}
