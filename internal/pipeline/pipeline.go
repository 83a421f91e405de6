// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains the stages end to end: OCR acquisition,
// deterministic cleanup, LLM formatting, and the loss check, with every
// stage outcome recorded in the run ledger.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/ocr-pipeline/internal/cleanup"
	"github.com/pdiddy/ocr-pipeline/internal/format"
	"github.com/pdiddy/ocr-pipeline/internal/ledger"
	"github.com/pdiddy/ocr-pipeline/internal/ocr"
	"github.com/pdiddy/ocr-pipeline/internal/verify"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

const (
	// CleanedFile is the cleanup stage output.
	CleanedFile = "stage_1_complete.md"
	// FormattedFile is the final formatted document.
	FormattedFile = "final_formatted.md"
	// VerifyFile is the YAML loss report comparing raw OCR against the
	// final document.
	VerifyFile = "verify.yaml"
)

// Stages holds the injectable backends: the OCR engine and the section
// rewriter. Tests substitute fakes, commands wire the real APIs.
type Stages struct {
	Engine   ocr.Engine
	Rewriter format.Rewriter
}

// Outcome collects what one full run produced.
type Outcome struct {
	Document      *types.Document
	StagedPath    string
	CleanedPath   string
	FormattedPath string
	VerifyPath    string
	Format        format.Summary
	Verify        verify.Report
}

// RunFile processes a local PDF end to end. The ledger may be nil, in
// which case nothing is recorded.
func RunFile(ctx context.Context, st Stages, pdfPath string, cfg types.PipelineConfig, led *ledger.Ledger, w io.Writer) (*Outcome, error) {
	outDir := filepath.Join(cfg.OutputDir, ocr.DocID(pdfPath))
	return run(ctx, st, cfg, led, w, outDir, func() (*ocr.Result, error) {
		return ocr.ProcessFile(ctx, st.Engine, pdfPath, outDir, cfg.OCR, w)
	})
}

// RunURL processes a PDF the OCR API fetches itself.
func RunURL(ctx context.Context, st Stages, pdfURL string, cfg types.PipelineConfig, led *ledger.Ledger, w io.Writer) (*Outcome, error) {
	outDir := filepath.Join(cfg.OutputDir, ocr.DocID(pdfURL))
	return run(ctx, st, cfg, led, w, outDir, func() (*ocr.Result, error) {
		return ocr.ProcessURL(ctx, st.Engine, pdfURL, outDir, cfg.OCR, w)
	})
}

func run(ctx context.Context, st Stages, cfg types.PipelineConfig, led *ledger.Ledger, w io.Writer, outDir string, acquire func() (*ocr.Result, error)) (*Outcome, error) {
	// Stage 0: OCR.
	start := time.Now()
	res, err := acquire()
	if err != nil {
		return nil, err
	}
	if led != nil && !res.Skipped {
		if err := led.RecordDocument(ctx, res.Document); err != nil {
			fmt.Fprintf(w, "warning: ledger: %v\n", err)
		}
	}
	recordFileStage(ctx, led, res.Document.ID, "ocr", res.StagedPath, time.Since(start), w)

	out := &Outcome{
		Document:      res.Document,
		StagedPath:    res.StagedPath,
		CleanedPath:   filepath.Join(outDir, CleanedFile),
		FormattedPath: filepath.Join(outDir, FormattedFile),
		VerifyPath:    filepath.Join(outDir, VerifyFile),
	}

	// Stage 1: deterministic cleanup.
	start = time.Now()
	if err := cleanup.CleanFile(out.StagedPath, out.CleanedPath, cfg.Cleanup, w); err != nil {
		return nil, fmt.Errorf("cleanup stage: %w", err)
	}
	recordFileStage(ctx, led, res.Document.ID, "cleanup", out.CleanedPath, time.Since(start), w)

	// Stage 2: LLM formatting.
	start = time.Now()
	summary, err := format.FormatFile(ctx, st.Rewriter, out.CleanedPath, out.FormattedPath, cfg.Format, w)
	if err != nil {
		return nil, fmt.Errorf("format stage: %w", err)
	}
	out.Format = summary
	recordFormatStage(ctx, led, res.Document.ID, out.FormattedPath, summary, time.Since(start), w)

	// Loss check: raw OCR against the final document.
	report, err := verify.CompareFiles(out.StagedPath, out.FormattedPath, w)
	if err != nil {
		return nil, fmt.Errorf("verify stage: %w", err)
	}
	out.Verify = report
	if err := verify.WriteReport(report, out.VerifyPath); err != nil {
		fmt.Fprintf(w, "warning: writing %s: %v\n", out.VerifyPath, err)
	}

	return out, nil
}

// recordFileStage measures a stage output file and appends the run to
// the ledger. Ledger problems are warnings; they must not fail the run.
func recordFileStage(ctx context.Context, led *ledger.Ledger, docID, stage, path string, elapsed time.Duration, w io.Writer) {
	if led == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "warning: ledger: reading %s: %v\n", path, err)
		return
	}
	chars, words, lines := ledger.Measure(string(data))
	rec := ledger.StageRecord{
		DocumentID: docID,
		Stage:      stage,
		Chars:      chars,
		Words:      words,
		Lines:      lines,
		Duration:   elapsed,
	}
	if err := led.RecordStage(ctx, rec); err != nil {
		fmt.Fprintf(w, "warning: ledger: %v\n", err)
	}
}

func recordFormatStage(ctx context.Context, led *ledger.Ledger, docID, path string, summary format.Summary, elapsed time.Duration, w io.Writer) {
	if led == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "warning: ledger: reading %s: %v\n", path, err)
		return
	}
	chars, words, lines := ledger.Measure(string(data))
	rec := ledger.StageRecord{
		DocumentID: docID,
		Stage:      "format",
		Chars:      chars,
		Words:      words,
		Lines:      lines,
		Rewritten:  summary.Rewritten,
		Fallback:   summary.Fallback,
		Duration:   elapsed,
	}
	if err := led.RecordStage(ctx, rec); err != nil {
		fmt.Fprintf(w, "warning: ledger: %v\n", err)
	}
}
