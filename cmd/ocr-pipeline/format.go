// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/format"
	"github.com/pdiddy/ocr-pipeline/internal/pipeline"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var formatCmd = &cobra.Command{
	Use:   "format [markdown-files...]",
	Short: "Rewrite cleaned Markdown section by section via the Gemini API",
	Long: `Format splits each document at its headings, sends every section to
the Gemini API with formatting instructions, and reassembles the result.
A section whose rewrite fails or looks implausible after retries is kept
verbatim, so the output document is always complete.

Each input file produces a final_formatted.md next to it, unless
--output names an explicit destination for a single input.`,
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().String("output", "", "output path (single input only)")
	formatCmd.Flags().String("model", format.DefaultGeminiModel, "Gemini model identifier")
	formatCmd.Flags().String("api-key", "", "Gemini API key (default: .secrets/gemini-api-key)")
	formatCmd.Flags().Int("max-attempts", 0, "attempts per section including the first (default 3)")
	formatCmd.Flags().Duration("base-delay", 0, "backoff base delay between retries (default 1s)")
	formatCmd.Flags().Int("workers", 0, "concurrent rewrite calls (default sequential)")
	formatCmd.Flags().Int("max-chunk-size", 0, "largest section in bytes per API call (default 24576)")
	formatCmd.Flags().String("prompt-file", "", "file overriding the built-in formatting instructions")
	formatCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10m)")

	rootCmd.AddCommand(formatCmd)
}

// formatConfigFromFlags builds the formatting stage config shared by
// "format" and "run".
func formatConfigFromFlags(cmd *cobra.Command) types.FormatConfig {
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	baseDelay, _ := cmd.Flags().GetDuration("base-delay")
	workers, _ := cmd.Flags().GetInt("workers")
	maxChunk, _ := cmd.Flags().GetInt("max-chunk-size")
	promptFile, _ := cmd.Flags().GetString("prompt-file")

	return types.FormatConfig{
		AIConfig: types.AIConfig{
			Model:       model,
			APIKey:      secretDefault("gemini-api-key", apiKey),
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
		},
		MaxChunkSize: maxChunk,
		Workers:      workers,
		PromptFile:   promptFile,
	}
}

func geminiBackend(cmd *cobra.Command, cfg types.FormatConfig) (*format.GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required: use --api-key or .secrets/gemini-api-key")
	}
	instructions, err := format.LoadInstructions(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &format.GeminiBackend{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Client:       &http.Client{Timeout: timeout},
		Instructions: instructions,
	}, nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more Markdown files")
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output requires exactly one input file")
	}

	cfg := formatConfigFromFlags(cmd)
	backend, err := geminiBackend(cmd, cfg)
	if err != nil {
		return err
	}

	var failed int
	for _, inPath := range args {
		outPath := output
		if outPath == "" {
			outPath = filepath.Join(filepath.Dir(inPath), pipeline.FormattedFile)
		}
		summary, err := format.FormatFile(context.Background(), backend, inPath, outPath, cfg, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", inPath, err)
			failed++
			continue
		}
		if summary.HasFailures() {
			fmt.Fprintf(os.Stdout, "note: %d section(s) kept verbatim\n", summary.Fallback)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed formatting", failed)
	}
	return nil
}
