// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

const (
	// ContentFile is the stitched raw OCR output.
	ContentFile = "document_content.md"
	// StagedFile is the OCR output with image references relinked, the
	// input to the cleanup stage.
	StagedFile = "pre_stage_1.md"
	// MetadataFile records what was processed and when.
	MetadataFile = "document.yaml"
)

// Result holds the on-disk outcome of one OCR run.
type Result struct {
	Document    *types.Document
	ContentPath string
	StagedPath  string
	ImagesSaved int
	Skipped     bool
}

// ProcessFile OCRs a local PDF into outputDir. The PDF travels to the
// API inline as a base64 data URL, so there is no upload step.
func ProcessFile(ctx context.Context, engine Engine, pdfPath, outputDir string, cfg types.OCRConfig, w io.Writer) (*Result, error) {
	docURL, err := FileDocumentURL(pdfPath)
	if err != nil {
		return nil, err
	}
	doc := &types.Document{
		ID:      DocID(pdfPath),
		PDFPath: pdfPath,
	}
	return process(ctx, engine, docURL, doc, outputDir, cfg, w)
}

// ProcessURL OCRs a PDF the API can fetch itself.
func ProcessURL(ctx context.Context, engine Engine, pdfURL, outputDir string, cfg types.OCRConfig, w io.Writer) (*Result, error) {
	doc := &types.Document{
		ID:        DocID(pdfURL),
		SourceURL: pdfURL,
	}
	return process(ctx, engine, pdfURL, doc, outputDir, cfg, w)
}

// process runs the OCR call and materializes its output: the stitched
// Markdown, the extracted images, the relinked staging file, and the
// metadata record. If the staging file already exists the document is
// skipped so reruns are cheap.
func process(ctx context.Context, engine Engine, docURL string, doc *types.Document, outputDir string, cfg types.OCRConfig, w io.Writer) (*Result, error) {
	stagedPath := filepath.Join(outputDir, StagedFile)
	contentPath := filepath.Join(outputDir, ContentFile)

	if _, err := os.Stat(stagedPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already processed)\n", doc.ID)
		return &Result{Document: doc, ContentPath: contentPath, StagedPath: stagedPath, Skipped: true}, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	fmt.Fprintf(w, "ocr: %s\n", doc.ID)

	pages, err := engine.Process(ctx, docURL, cfg.IncludeImages)
	if err != nil {
		doc.OCRStatus = types.OCRFailed
		return nil, fmt.Errorf("OCR for %s: %w", doc.ID, err)
	}

	// Stitch the pages into one document, in page order.
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Markdown
	}
	content := strings.Join(parts, "\n\n")
	if err := os.WriteFile(contentPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", contentPath, err)
	}

	saved := map[string]string{}
	if cfg.IncludeImages {
		saved, err = SaveImages(pages, outputDir, w)
		if err != nil {
			return nil, err
		}
	}

	staged := RelinkImages(content, saved, w)
	if err := os.WriteFile(stagedPath, []byte(staged), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", stagedPath, err)
	}

	doc.OutputDir = outputDir
	doc.Model = cfg.Model
	if doc.Model == "" {
		doc.Model = DefaultMistralModel
	}
	doc.Pages = len(pages)
	doc.Images = len(saved)
	doc.ProcessedAt = time.Now().UTC()
	doc.OCRStatus = types.OCRDone

	if err := writeMetadata(doc, filepath.Join(outputDir, MetadataFile)); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "ocr done: %s (%d pages, %d images)\n", doc.ID, doc.Pages, doc.Images)
	return &Result{
		Document:    doc,
		ContentPath: contentPath,
		StagedPath:  stagedPath,
		ImagesSaved: len(saved),
	}, nil
}

// DocID derives a document identifier from a path or URL: the base name
// without the .pdf suffix, lowercased.
func DocID(source string) string {
	base := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		base = u.Path
	}
	base = filepath.Base(base)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base
}

// writeMetadata writes a Document record to a YAML file.
func writeMetadata(doc *types.Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadMetadata reads a Document record back from a YAML file.
func ReadMetadata(path string) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc types.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return &doc, nil
}
