// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/format"
	"github.com/pdiddy/ocr-pipeline/internal/ledger"
	"github.com/pdiddy/ocr-pipeline/internal/ocr"
	"github.com/pdiddy/ocr-pipeline/internal/pipeline"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [pdf-files-or-urls...]",
	Short: "Run the full pipeline: OCR, cleanup, formatting, loss check",
	Long: `Run chains all stages for each document: OCR acquisition, deterministic
cleanup, section-by-section LLM formatting, and a content loss check. Every
stage outcome is recorded in the run ledger under <output-dir>/index/runs.db.

Documents that already have raw OCR output skip the OCR call, so rerunning
after a formatting failure is cheap.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("output-dir", defaultOutputDir, "base directory for per-document output")
	runCmd.Flags().String("ocr-model", ocr.DefaultMistralModel, "OCR model identifier")
	runCmd.Flags().String("ocr-api-key", "", "Mistral API key (default: .secrets/mistral-api-key)")
	runCmd.Flags().Bool("no-images", false, "skip image extraction")
	runCmd.Flags().Int("max-retries", 0, "retry attempts for rate-limited OCR calls (default 5)")
	runCmd.Flags().Int("max-blank-lines", 0, "cap on consecutive blank lines (default 2)")
	runCmd.Flags().Bool("no-truncate", false, "keep content after the references section")
	runCmd.Flags().String("format-model", format.DefaultGeminiModel, "Gemini model identifier")
	runCmd.Flags().String("format-api-key", "", "Gemini API key (default: .secrets/gemini-api-key)")
	runCmd.Flags().Int("max-attempts", 0, "rewrite attempts per section (default 3)")
	runCmd.Flags().Duration("base-delay", 0, "backoff base delay between retries (default 1s)")
	runCmd.Flags().Int("workers", 0, "concurrent rewrite calls (default sequential)")
	runCmd.Flags().String("prompt-file", "", "file overriding the built-in formatting instructions")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10m)")

	rootCmd.AddCommand(runCmd)
}

func pipelineConfigFromFlags(cmd *cobra.Command) types.PipelineConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	ocrModel, _ := cmd.Flags().GetString("ocr-model")
	ocrKey, _ := cmd.Flags().GetString("ocr-api-key")
	noImages, _ := cmd.Flags().GetBool("no-images")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")

	maxBlank, _ := cmd.Flags().GetInt("max-blank-lines")
	noTruncate, _ := cmd.Flags().GetBool("no-truncate")

	formatModel, _ := cmd.Flags().GetString("format-model")
	formatKey, _ := cmd.Flags().GetString("format-api-key")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	baseDelay, _ := cmd.Flags().GetDuration("base-delay")
	workers, _ := cmd.Flags().GetInt("workers")
	promptFile, _ := cmd.Flags().GetString("prompt-file")

	outputDir, _ := cmd.Flags().GetString("output-dir")

	return types.PipelineConfig{
		OCR: types.OCRConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: defaultUserAgent,
			},
			Model:         ocrModel,
			APIKey:        secretDefault("mistral-api-key", ocrKey),
			IncludeImages: !noImages,
			MaxRetries:    maxRetries,
		},
		Cleanup: types.CleanupConfig{
			MaxBlankLines: maxBlank,
			Truncate:      !noTruncate,
		},
		Format: types.FormatConfig{
			AIConfig: types.AIConfig{
				Model:       formatModel,
				APIKey:      secretDefault("gemini-api-key", formatKey),
				MaxAttempts: maxAttempts,
				BaseDelay:   baseDelay,
			},
			Workers:    workers,
			PromptFile: promptFile,
		},
		OutputDir: outputDir,
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF files or URLs")
	}

	cfg := pipelineConfigFromFlags(cmd)

	engine, err := mistralBackend(cfg.OCR)
	if err != nil {
		return err
	}
	rewriter, err := geminiBackend(cmd, cfg.Format)
	if err != nil {
		return err
	}
	stages := pipeline.Stages{Engine: engine, Rewriter: rewriter}

	led, err := ledger.Open(cfg.OutputDir, types.LedgerConfig{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run ledger unavailable: %v\n", err)
		led = nil
	} else {
		defer led.Close()
	}

	var completed, failed int
	for _, arg := range args {
		var out *pipeline.Outcome
		if isURL(arg) {
			out, err = pipeline.RunURL(context.Background(), stages, arg, cfg, led, os.Stdout)
		} else {
			out, err = pipeline.RunFile(context.Background(), stages, arg, cfg, led, os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", arg, err)
			failed++
			continue
		}
		completed++
		fmt.Fprintf(os.Stdout, "done: %s -> %s\n", out.Document.ID, out.FormattedPath)
	}

	fmt.Fprintf(os.Stdout, "\nPipeline summary: %d completed, %d failed (total: %d)\n",
		completed, failed, len(args))
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}
