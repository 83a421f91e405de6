// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OCRStatus indicates the state of OCR acquisition for a document.
type OCRStatus string

const (
	OCRNone   OCRStatus = "none"
	OCRDone   OCRStatus = "done"
	OCRFailed OCRStatus = "failed"
)

// Document holds metadata and file paths for one processed PDF. One Document
// corresponds to one per-document output directory named after the PDF stem.
type Document struct {
	// ID is a slug derived from the PDF filename or URL (e.g. "bio_paper_1").
	ID string `json:"id" yaml:"id"`

	// SourceURL is the URL the PDF was submitted from, when applicable.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// PDFPath is the local filesystem path to the PDF, when applicable.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// OutputDir is the per-document directory holding all stage outputs.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Model is the OCR model that produced the raw Markdown.
	Model string `json:"model" yaml:"model"`

	// Pages is the number of pages the OCR API returned.
	Pages int `json:"pages" yaml:"pages"`

	// Images is the number of page images saved alongside the Markdown.
	Images int `json:"images" yaml:"images"`

	// ProcessedAt records when the OCR call completed.
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`

	// OCRStatus tracks whether the document has raw OCR output on disk.
	OCRStatus OCRStatus `json:"ocr_status" yaml:"ocr_status"`
}

// Page is one page record returned by the OCR API, in document order.
type Page struct {
	Index    int         `json:"index"`
	Markdown string      `json:"markdown"`
	Images   []PageImage `json:"images"`
}

// PageImage is one extracted image belonging to a page. Data holds the
// base64 payload, either bare or as a data URI with a media-type prefix.
type PageImage struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}
