// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/ocr"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-files-or-urls...]",
	Short: "OCR PDFs into raw Markdown via the Mistral OCR API",
	Long: `OCR submits each PDF to the Mistral OCR API and writes the result to a
per-document directory under the output directory: the stitched Markdown,
the extracted page images, a staging file with image references relinked,
and a metadata record. Documents with existing output are skipped.`,
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().String("output-dir", defaultOutputDir, "base directory for per-document output")
	ocrCmd.Flags().String("model", ocr.DefaultMistralModel, "OCR model identifier")
	ocrCmd.Flags().String("api-key", "", "Mistral API key (default: .secrets/mistral-api-key)")
	ocrCmd.Flags().Bool("no-images", false, "skip image extraction")
	ocrCmd.Flags().Int("max-retries", 0, "retry attempts for rate-limited calls (default 5)")
	ocrCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10m)")

	rootCmd.AddCommand(ocrCmd)
}

// ocrConfigFromFlags builds the OCR stage config shared by "ocr" and "run".
func ocrConfigFromFlags(cmd *cobra.Command) types.OCRConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	noImages, _ := cmd.Flags().GetBool("no-images")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")

	return types.OCRConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		Model:         model,
		APIKey:        secretDefault("mistral-api-key", apiKey),
		IncludeImages: !noImages,
		MaxRetries:    maxRetries,
	}
}

func mistralBackend(cfg types.OCRConfig) (*ocr.MistralBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Mistral API key required: use --api-key or .secrets/mistral-api-key")
	}
	return &ocr.MistralBackend{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Client:     &http.Client{Timeout: cfg.Timeout},
		MaxRetries: cfg.MaxRetries,
	}, nil
}

// isURL reports whether an argument is a fetchable address rather than
// a local path.
func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func runOCR(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF files or URLs")
	}

	cfg := ocrConfigFromFlags(cmd)
	engine, err := mistralBackend(cfg)
	if err != nil {
		return err
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")

	var processed, skipped, failed int
	for _, arg := range args {
		docDir := filepath.Join(outputDir, ocr.DocID(arg))

		var res *ocr.Result
		if isURL(arg) {
			res, err = ocr.ProcessURL(context.Background(), engine, arg, docDir, cfg, os.Stdout)
		} else {
			res, err = ocr.ProcessFile(context.Background(), engine, arg, docDir, cfg, os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", arg, err)
			failed++
			continue
		}
		if res.Skipped {
			skipped++
		} else {
			processed++
		}
	}

	fmt.Fprintf(os.Stdout, "\nOCR summary: %d processed, %d skipped, %d failed (total: %d)\n",
		processed, skipped, failed, len(args))
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed OCR", failed)
	}
	return nil
}
