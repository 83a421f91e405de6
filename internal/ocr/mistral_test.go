// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePagesBody = `{
	"pages": [
		{"index": 0, "markdown": "# Title\n\nFirst page.", "images": []},
		{"index": 1, "markdown": "Second page with ![fig](img-0.jpeg)",
		 "images": [{"id": "img-0.jpeg", "image_base64": "aGVsbG8="}]}
	]
}`

func mistralFixture(t *testing.T, handler http.HandlerFunc) *MistralBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	oldURL := mistralAPIURL
	mistralAPIURL = srv.URL
	t.Cleanup(func() { mistralAPIURL = oldURL })

	return &MistralBackend{APIKey: "test-key", Client: srv.Client()}
}

func TestMistralProcess(t *testing.T) {
	var gotAuth string
	var gotReq ocrRequest

	m := mistralFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(samplePagesBody))
	})

	pages, err := m.Process(context.Background(), "https://example.org/paper.pdf", true)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, DefaultMistralModel, gotReq.Model)
	assert.Equal(t, "document_url", gotReq.Document.Type)
	assert.Equal(t, "https://example.org/paper.pdf", gotReq.Document.DocumentURL)
	assert.True(t, gotReq.IncludeImageBase64)

	require.Len(t, pages, 2)
	assert.Equal(t, 0, pages[0].Index)
	assert.Equal(t, "# Title\n\nFirst page.", pages[0].Markdown)
	require.Len(t, pages[1].Images, 1)
	assert.Equal(t, "img-0.jpeg", pages[1].Images[0].ID)
	assert.Equal(t, "aGVsbG8=", pages[1].Images[0].Data)
}

func TestMistralProcessCustomModel(t *testing.T) {
	var gotReq ocrRequest
	m := mistralFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(samplePagesBody))
	})
	m.Model = "mistral-ocr-2505"

	_, err := m.Process(context.Background(), "https://example.org/paper.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, "mistral-ocr-2505", gotReq.Model)
	assert.False(t, gotReq.IncludeImageBase64)
}

func TestMistralProcessErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", "returned 401"},
		{"no pages", http.StatusOK, `{"pages":[]}`, "no pages"},
		{"bad json", http.StatusOK, "{oops", "decoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mistralFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := m.Process(context.Background(), "https://example.org/paper.pdf", false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileDocumentURL(t *testing.T) {
	path := writeTempFile(t, "paper.pdf", "%PDF-1.4 fake")
	got, err := FileDocumentURL(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:application/pdf;base64,"))
	assert.Contains(t, got, "JVBERi0xLjQgZmFrZQ==")

	_, err = FileDocumentURL("/nonexistent.pdf")
	require.Error(t, err)
}
