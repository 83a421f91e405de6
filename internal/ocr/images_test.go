// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	pngBytes  = []byte("\x89PNG\r\n\x1a\n")
	gifBytes  = []byte("GIF89a")
)

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantExt string
	}{
		{"data URI png", "data:image/png;base64," + b64(pngBytes), "png"},
		{"data URI jpeg", "data:image/jpeg;base64," + b64(jpegBytes), "jpeg"},
		{"bare jpeg sniffed", b64(jpegBytes), "jpeg"},
		{"bare png sniffed", b64(pngBytes), "png"},
		{"bare gif sniffed", b64(gifBytes), "gif"},
		{"unknown defaults to jpeg", b64([]byte("????????")), "jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ext, err := decodeImage(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
			assert.NotEmpty(t, data)
		})
	}
}

func TestDecodeImageBadBase64(t *testing.T) {
	_, _, err := decodeImage("not!!valid!!base64")
	require.Error(t, err)
}

func TestSaveImages(t *testing.T) {
	dir := t.TempDir()
	pages := []types.Page{
		{Index: 0, Images: []types.PageImage{
			{ID: "img-0.jpeg", Data: b64(jpegBytes)},
			{ID: "img-1.png", Data: "data:image/png;base64," + b64(pngBytes)},
		}},
		{Index: 1},
		{Index: 2, Images: []types.PageImage{
			{ID: "img-2.jpeg", Data: b64(jpegBytes)},
		}},
	}

	saved, err := SaveImages(pages, dir, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"img-0.jpeg": "page_0_image_0.jpeg",
		"img-1.png":  "page_0_image_1.png",
		"img-2.jpeg": "page_2_image_0.jpeg",
	}, saved)

	data, err := os.ReadFile(filepath.Join(dir, "page_0_image_1.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSaveImagesSkipsUndecodable(t *testing.T) {
	dir := t.TempDir()
	pages := []types.Page{
		{Index: 0, Images: []types.PageImage{
			{ID: "bad", Data: "!!!"},
			{ID: "good.jpeg", Data: b64(jpegBytes)},
		}},
	}

	var progress strings.Builder
	saved, err := SaveImages(pages, dir, &progress)
	require.NoError(t, err)

	assert.Len(t, saved, 1)
	assert.Contains(t, progress.String(), "warning: skipping image bad")
}

func TestRelinkImages(t *testing.T) {
	markdown := "Intro.\n\n![fig 1](img-0.jpeg)\n\nText.\n\n![fig 2](img-1.png)\n"
	saved := map[string]string{
		"img-0.jpeg": "page_0_image_0.jpeg",
		"img-1.png":  "page_1_image_0.png",
	}

	got := RelinkImages(markdown, saved, io.Discard)
	assert.Contains(t, got, "![fig 1](page_0_image_0.jpeg)")
	assert.Contains(t, got, "![fig 2](page_1_image_0.png)")
	assert.NotContains(t, got, "img-0.jpeg")
}

func TestRelinkImagesCountMismatchWarns(t *testing.T) {
	markdown := "![a](img-0.jpeg)\n![b](img-1.jpeg)\n"
	saved := map[string]string{"img-0.jpeg": "page_0_image_0.jpeg"}

	var progress strings.Builder
	got := RelinkImages(markdown, saved, &progress)
	assert.Contains(t, progress.String(), "2 image tags but 1 saved images")
	// The matched reference is still rewritten.
	assert.Contains(t, got, "page_0_image_0.jpeg")
	assert.Contains(t, got, "img-1.jpeg")
}
