// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ocr-pipeline/internal/format"
	"github.com/pdiddy/ocr-pipeline/internal/ledger"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// cannedEngine returns fixed pages for any document.
type cannedEngine struct {
	pages []types.Page
	err   error
}

func (c *cannedEngine) Process(context.Context, string, bool) ([]types.Page, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.pages, nil
}

// passthroughRewriter returns sections unchanged, as if the model made
// no edits.
type passthroughRewriter struct{}

func (passthroughRewriter) Rewrite(_ context.Context, chunk string) (string, error) {
	return chunk, nil
}

// brokenRewriter simulates a fully unavailable rewrite API.
type brokenRewriter struct{}

func (brokenRewriter) Rewrite(context.Context, string) (string, error) {
	return "", fmt.Errorf("backend down")
}

const pageOne = `# A Study of Things

This paragraph cites [1] and keeps $x^2$ intact.

## Methods

We measured
everything twice to
be sure.
`

const pageTwo = `## References

[1] Someone et al. Important prior work.

## Appendix

Supplementary text the pipeline truncates.
`

func testStages(rw format.Rewriter) Stages {
	return Stages{
		Engine: &cannedEngine{pages: []types.Page{
			{Index: 0, Markdown: pageOne},
			{Index: 1, Markdown: pageTwo},
		}},
		Rewriter: rw,
	}
}

func testConfig(t *testing.T) types.PipelineConfig {
	t.Helper()
	cfg := types.PipelineConfig{OutputDir: t.TempDir()}
	cfg.Cleanup.Truncate = true
	cfg.Format.MaxAttempts = 2
	cfg.Format.BaseDelay = time.Millisecond
	return cfg
}

func TestRunFile(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "My_Study.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644))

	cfg := testConfig(t)
	led, err := ledger.Open(cfg.OutputDir, types.LedgerConfig{})
	require.NoError(t, err)
	defer led.Close()

	out, err := RunFile(context.Background(), testStages(passthroughRewriter{}), pdfPath, cfg, led, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "my_study", out.Document.ID)
	assert.Equal(t, 2, out.Document.Pages)

	// Every stage file exists under the per-document directory.
	docDir := filepath.Join(cfg.OutputDir, "my_study")
	for _, name := range []string{"document_content.md", "pre_stage_1.md", CleanedFile, FormattedFile, VerifyFile} {
		_, statErr := os.Stat(filepath.Join(docDir, name))
		assert.NoError(t, statErr, name)
	}

	// Cleanup truncated the appendix and merged the broken paragraph.
	cleaned, err := os.ReadFile(out.CleanedPath)
	require.NoError(t, err)
	assert.NotContains(t, string(cleaned), "Appendix")
	assert.Contains(t, string(cleaned), "We measured everything twice to be sure.")

	// The loss check found nothing to complain about.
	assert.True(t, out.Verify.Clean())
	assert.Equal(t, []string{"Appendix"}, out.Verify.TruncatedSections)

	// The ledger recorded the document and all three stages.
	docs, err := led.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	runs, err := led.ListRuns(context.Background(), "my_study", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	gotStages := []string{runs[2].Stage, runs[1].Stage, runs[0].Stage}
	assert.Equal(t, []string{"ocr", "cleanup", "format"}, gotStages)
	for _, rec := range runs {
		assert.Greater(t, rec.Chars, 0, rec.Stage)
	}
}

func TestRunFileBackendDownStillCompletes(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644))

	cfg := testConfig(t)
	out, err := RunFile(context.Background(), testStages(brokenRewriter{}), pdfPath, cfg, nil, io.Discard)
	require.NoError(t, err)

	assert.True(t, out.Format.HasFailures())
	assert.Equal(t, 0, out.Format.Rewritten)

	// Every section fell back, so the final file equals the cleaned one.
	cleaned, err := os.ReadFile(out.CleanedPath)
	require.NoError(t, err)
	formatted, err := os.ReadFile(out.FormattedPath)
	require.NoError(t, err)
	assert.Equal(t, string(cleaned), string(formatted))
	assert.True(t, out.Verify.Clean())
}

func TestRunURL(t *testing.T) {
	cfg := testConfig(t)
	out, err := RunURL(context.Background(), testStages(passthroughRewriter{}),
		"https://example.org/papers/Remote_Study.pdf", cfg, nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "remote_study", out.Document.ID)
	assert.Equal(t, "https://example.org/papers/Remote_Study.pdf", out.Document.SourceURL)
	_, statErr := os.Stat(out.FormattedPath)
	assert.NoError(t, statErr)
}

func TestRunFileOCRFailure(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644))

	st := Stages{Engine: &cannedEngine{err: fmt.Errorf("quota exceeded")}, Rewriter: passthroughRewriter{}}
	_, err := RunFile(context.Background(), st, pdfPath, testConfig(t), nil, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRunFileRerunSkipsOCR(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644))

	cfg := testConfig(t)
	st := testStages(passthroughRewriter{})

	_, err := RunFile(context.Background(), st, pdfPath, cfg, nil, io.Discard)
	require.NoError(t, err)

	// Second run: OCR is skipped but the later stages still execute.
	var progress strings.Builder
	out, err := RunFile(context.Background(), st, pdfPath, cfg, nil, &progress)
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "already processed")
	assert.True(t, out.Verify.Clean())
}
