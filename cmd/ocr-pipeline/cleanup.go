// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/cleanup"
	"github.com/pdiddy/ocr-pipeline/internal/pipeline"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [markdown-files...]",
	Short: "Apply deterministic repairs to raw OCR Markdown",
	Long: `Cleanup normalizes OCR artifacts without calling any API: stray <br>
tags, broken URLs, space before punctuation, merged sentences, excess
blank lines, and hard-wrapped paragraphs. Content after the references
section is dropped unless --no-truncate is set.

Each input file produces a stage_1_complete.md next to it, unless
--output names an explicit destination for a single input.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().String("output", "", "output path (single input only)")
	cleanupCmd.Flags().Int("max-blank-lines", 0, "cap on consecutive blank lines (default 2)")
	cleanupCmd.Flags().Bool("no-truncate", false, "keep content after the references section")

	rootCmd.AddCommand(cleanupCmd)
}

// cleanupConfigFromFlags builds the cleanup stage config shared by
// "cleanup" and "run".
func cleanupConfigFromFlags(cmd *cobra.Command) types.CleanupConfig {
	maxBlank, _ := cmd.Flags().GetInt("max-blank-lines")
	noTruncate, _ := cmd.Flags().GetBool("no-truncate")
	return types.CleanupConfig{
		MaxBlankLines: maxBlank,
		Truncate:      !noTruncate,
	}
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more Markdown files")
	}

	output, _ := cmd.Flags().GetString("output")
	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output requires exactly one input file")
	}

	cfg := cleanupConfigFromFlags(cmd)

	var failed int
	for _, inPath := range args {
		outPath := output
		if outPath == "" {
			outPath = filepath.Join(filepath.Dir(inPath), pipeline.CleanedFile)
		}
		if err := cleanup.CleanFile(inPath, outPath, cfg, os.Stdout); err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", inPath, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed cleanup", failed)
	}
	return nil
}
