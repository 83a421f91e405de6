// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records pipeline runs in a SQLite database so past
// stage outcomes can be listed and compared without re-reading output
// directories.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "runs.db"
)

// Ledger manages the run-history SQLite database.
type Ledger struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the ledger database at baseDir/index/runs.db,
// creating the schema if it does not exist.
func Open(baseDir string, cfg types.LedgerConfig) (*Ledger, error) {
	dbDir := filepath.Join(baseDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	l := &Ledger{db: db, maxResults: maxResults}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			source_url TEXT,
			pdf_path TEXT,
			output_dir TEXT,
			model TEXT,
			pages INTEGER,
			images INTEGER,
			ocr_status TEXT,
			processed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stage_runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id),
			stage TEXT NOT NULL,
			chars INTEGER,
			words INTEGER,
			lines INTEGER,
			rewritten INTEGER,
			fallback INTEGER,
			duration_ms INTEGER,
			recorded_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_runs_document ON stage_runs(document_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordDocument upserts the metadata row for one document.
func (l *Ledger) RecordDocument(ctx context.Context, doc *types.Document) error {
	processedAt := ""
	if !doc.ProcessedAt.IsZero() {
		processedAt = doc.ProcessedAt.UTC().Format(time.RFC3339)
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_url, pdf_path, output_dir, model, pages, images, ocr_status, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_url=excluded.source_url, pdf_path=excluded.pdf_path,
			output_dir=excluded.output_dir, model=excluded.model,
			pages=excluded.pages, images=excluded.images,
			ocr_status=excluded.ocr_status, processed_at=excluded.processed_at`,
		doc.ID, doc.SourceURL, doc.PDFPath, doc.OutputDir, doc.Model,
		doc.Pages, doc.Images, string(doc.OCRStatus), processedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return nil
}

// StageRecord is one stage outcome for one document.
type StageRecord struct {
	DocumentID string
	Stage      string
	Chars      int
	Words      int
	Lines      int
	Rewritten  int
	Fallback   int
	Duration   time.Duration
	RecordedAt time.Time
}

// RecordStage appends a stage outcome. The document row must already
// exist; RecordDocument is the usual predecessor.
func (l *Ledger) RecordStage(ctx context.Context, rec StageRecord) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO stage_runs (document_id, stage, chars, words, lines, rewritten, fallback, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DocumentID, rec.Stage, rec.Chars, rec.Words, rec.Lines,
		rec.Rewritten, rec.Fallback, rec.Duration.Milliseconds(),
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s run for %s: %w", rec.Stage, rec.DocumentID, err)
	}
	return nil
}

// ListRuns returns the most recent stage runs, newest first. An empty
// documentID lists runs across all documents. A limit of 0 falls back
// to the configured maximum.
func (l *Ledger) ListRuns(ctx context.Context, documentID string, limit int) ([]StageRecord, error) {
	if limit <= 0 {
		limit = l.maxResults
	}

	query := `SELECT document_id, stage, chars, words, lines, rewritten, fallback, duration_ms, recorded_at
		 FROM stage_runs`
	args := []any{}
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var rec StageRecord
		var durationMs int64
		var recordedAt string
		if err := rows.Scan(&rec.DocumentID, &rec.Stage, &rec.Chars, &rec.Words, &rec.Lines,
			&rec.Rewritten, &rec.Fallback, &durationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if t, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			rec.RecordedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListDocuments returns all recorded documents, most recently processed
// first.
func (l *Ledger) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source_url, pdf_path, output_dir, model, pages, images, ocr_status, processed_at
		 FROM documents ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		var status, processedAt string
		if err := rows.Scan(&doc.ID, &doc.SourceURL, &doc.PDFPath, &doc.OutputDir, &doc.Model,
			&doc.Pages, &doc.Images, &status, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.OCRStatus = types.OCRStatus(status)
		if t, parseErr := time.Parse(time.RFC3339, processedAt); parseErr == nil {
			doc.ProcessedAt = t
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Measure computes the size metrics recorded for a stage output.
func Measure(text string) (chars, words, lines int) {
	chars = len([]rune(text))
	words = len(strings.Fields(text))
	lines = strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		lines++
	}
	return chars, words, lines
}
