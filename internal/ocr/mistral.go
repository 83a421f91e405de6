// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr converts PDF documents to Markdown through the Mistral
// OCR API and materializes the result on disk: one stitched Markdown
// file, extracted page images, and a YAML metadata record.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pdiddy/ocr-pipeline/internal/httputil"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// mistralAPIURL is the OCR endpoint. Package-level var for test substitution.
var mistralAPIURL = "https://api.mistral.ai/v1/ocr"

// DefaultMistralModel is used when no model is configured.
const DefaultMistralModel = "mistral-ocr-latest"

// Engine turns a document URL into OCR'd pages. Implemented by
// MistralBackend; tests substitute their own.
type Engine interface {
	Process(ctx context.Context, documentURL string, includeImages bool) ([]types.Page, error)
}

// MistralBackend calls the Mistral OCR API.
type MistralBackend struct {
	APIKey     string
	Model      string
	Client     *http.Client
	MaxRetries int
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
		Images   []struct {
			ID          string `json:"id"`
			ImageBase64 string `json:"image_base64"`
		} `json:"images"`
	} `json:"pages"`
}

// Process submits one document to the OCR endpoint and returns its pages
// in order. Rate limiting and transient server errors are retried with
// backoff before this returns an error.
func (m *MistralBackend) Process(ctx context.Context, documentURL string, includeImages bool) ([]types.Page, error) {
	model := m.Model
	if model == "" {
		model = DefaultMistralModel
	}

	reqBody := ocrRequest{
		Model: model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: documentURL,
		},
		IncludeImageBase64: includeImages,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, m.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling OCR API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OCR API returned %d: %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return nil, fmt.Errorf("decoding OCR response: %w", err)
	}

	if len(ocrResp.Pages) == 0 {
		return nil, fmt.Errorf("OCR API returned no pages")
	}

	pages := make([]types.Page, 0, len(ocrResp.Pages))
	for _, p := range ocrResp.Pages {
		page := types.Page{Index: p.Index, Markdown: p.Markdown}
		for _, img := range p.Images {
			page.Images = append(page.Images, types.PageImage{ID: img.ID, Data: img.ImageBase64})
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// FileDocumentURL encodes a local PDF as a data URL the OCR endpoint
// accepts in place of a fetchable address.
func FileDocumentURL(pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pdfPath, err)
	}
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data), nil
}
