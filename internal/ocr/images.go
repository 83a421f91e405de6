// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// dataURIRe matches the prefix of a base64 data URI and captures the
// media subtype.
var dataURIRe = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,`)

// imageTagRe matches Markdown image tags; used only for the tag count
// check in RelinkImages.
var imageTagRe = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)

// decodeImage turns the base64 payload the OCR API returns into raw
// bytes plus a file extension. The payload may carry a data-URI prefix;
// without one the extension is sniffed from the decoded magic number,
// defaulting to jpeg because that is what the OCR engine emits when it
// cannot tell.
func decodeImage(payload string) ([]byte, string, error) {
	ext := ""
	if m := dataURIRe.FindStringSubmatch(payload); m != nil {
		ext = m[1]
		payload = payload[len(m[0]):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image data: %w", err)
	}

	if ext == "" {
		ext = sniffImageExt(data)
	}
	return data, ext, nil
}

// sniffImageExt identifies common image formats by magic number.
func sniffImageExt(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg"
	case len(data) >= 4 && string(data[:4]) == "\x89PNG":
		return "png"
	case len(data) >= 4 && string(data[:4]) == "GIF8":
		return "gif"
	default:
		return "jpeg"
	}
}

// SaveImages writes every page image under dir as
// page_<page>_image_<ordinal>.<ext> and returns a map from the image ID
// the OCR engine used in the Markdown to the saved filename. Pages with
// no images contribute nothing. Undecodable images are skipped with a
// warning; one bad image must not sink the document.
func SaveImages(pages []types.Page, dir string, w io.Writer) (map[string]string, error) {
	saved := make(map[string]string)
	for _, page := range pages {
		for i, img := range page.Images {
			data, ext, err := decodeImage(img.Data)
			if err != nil {
				fmt.Fprintf(w, "  warning: skipping image %s on page %d: %v\n", img.ID, page.Index, err)
				continue
			}
			name := fmt.Sprintf("page_%d_image_%d.%s", page.Index, i, ext)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return nil, fmt.Errorf("writing image %s: %w", name, err)
			}
			saved[img.ID] = name
		}
	}
	return saved, nil
}

// RelinkImages rewrites the image references in markdown to point at the
// files SaveImages wrote, replacing each OCR-assigned image ID with its
// saved filename. A mismatch between the number of image tags and the
// number of saved files is reported as a warning, not an error — the OCR
// engine sometimes emits tags for figures it could not extract.
func RelinkImages(markdown string, saved map[string]string, w io.Writer) string {
	tagCount := len(imageTagRe.FindAllString(markdown, -1))
	if tagCount != len(saved) {
		fmt.Fprintf(w, "  warning: %d image tags but %d saved images\n", tagCount, len(saved))
	}

	for id, name := range saved {
		markdown = strings.ReplaceAll(markdown, id, name)
	}
	return markdown
}
