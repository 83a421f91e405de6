// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

func openTestLedger(t *testing.T, cfg types.LedgerConfig) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleDocument(id string) *types.Document {
	return &types.Document{
		ID:          id,
		PDFPath:     "/papers/" + id + ".pdf",
		OutputDir:   "/out/" + id,
		Model:       "mistral-ocr-latest",
		Pages:       12,
		Images:      3,
		OCRStatus:   types.OCRDone,
		ProcessedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecordAndListDocuments(t *testing.T) {
	l := openTestLedger(t, types.LedgerConfig{})
	ctx := context.Background()

	doc := sampleDocument("paper_a")
	require.NoError(t, l.RecordDocument(ctx, doc))

	// Upsert: a second record for the same ID replaces the row.
	doc.Pages = 14
	require.NoError(t, l.RecordDocument(ctx, doc))

	docs, err := l.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "paper_a", docs[0].ID)
	assert.Equal(t, 14, docs[0].Pages)
	assert.Equal(t, types.OCRDone, docs[0].OCRStatus)
	assert.Equal(t, doc.ProcessedAt, docs[0].ProcessedAt)
}

func TestRecordAndListRuns(t *testing.T) {
	l := openTestLedger(t, types.LedgerConfig{})
	ctx := context.Background()

	require.NoError(t, l.RecordDocument(ctx, sampleDocument("paper_a")))
	require.NoError(t, l.RecordDocument(ctx, sampleDocument("paper_b")))

	stages := []StageRecord{
		{DocumentID: "paper_a", Stage: "ocr", Chars: 50000, Words: 8000, Lines: 900, Duration: 42 * time.Second},
		{DocumentID: "paper_a", Stage: "cleanup", Chars: 48000, Words: 8000, Lines: 600, Duration: 80 * time.Millisecond},
		{DocumentID: "paper_b", Stage: "ocr", Chars: 30000, Words: 5000, Lines: 500, Duration: 30 * time.Second},
		{DocumentID: "paper_a", Stage: "format", Chars: 48500, Words: 8100, Lines: 620, Rewritten: 10, Fallback: 2, Duration: 5 * time.Minute},
	}
	for _, rec := range stages {
		require.NoError(t, l.RecordStage(ctx, rec))
	}

	// Newest first, across documents.
	all, err := l.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "format", all[0].Stage)
	assert.Equal(t, 10, all[0].Rewritten)
	assert.Equal(t, 2, all[0].Fallback)
	assert.Equal(t, 5*time.Minute, all[0].Duration)
	assert.False(t, all[0].RecordedAt.IsZero())

	// Filtered by document.
	forA, err := l.ListRuns(ctx, "paper_a", 0)
	require.NoError(t, err)
	require.Len(t, forA, 3)
	for _, rec := range forA {
		assert.Equal(t, "paper_a", rec.DocumentID)
	}

	// Explicit limit wins.
	limited, err := l.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRunsDefaultLimit(t *testing.T) {
	l := openTestLedger(t, types.LedgerConfig{MaxResults: 3})
	ctx := context.Background()

	require.NoError(t, l.RecordDocument(ctx, sampleDocument("paper_a")))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.RecordStage(ctx, StageRecord{DocumentID: "paper_a", Stage: "cleanup"}))
	}

	runs, err := l.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l1, err := Open(dir, types.LedgerConfig{})
	require.NoError(t, err)
	require.NoError(t, l1.RecordDocument(context.Background(), sampleDocument("paper_a")))
	require.NoError(t, l1.Close())

	// Reopening the same database sees the existing rows.
	l2, err := Open(dir, types.LedgerConfig{})
	require.NoError(t, err)
	defer l2.Close()

	docs, err := l2.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMeasure(t *testing.T) {
	tests := []struct {
		name                            string
		text                            string
		wantChars, wantWords, wantLines int
	}{
		{"empty", "", 0, 0, 0},
		{"one line no newline", "two words", 9, 2, 1},
		{"trailing newline", "a b c\n", 6, 3, 1},
		{"multiline", "one\ntwo three\n\nfour\n", 20, 4, 4},
		{"unicode", "héllo wörld", 11, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chars, words, lines := Measure(tt.text)
			assert.Equal(t, tt.wantChars, chars, "chars")
			assert.Equal(t, tt.wantWords, words, "words")
			assert.Equal(t, tt.wantLines, lines, "lines")
		})
	}
}
