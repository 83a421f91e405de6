// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/ledger"
	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	Long: `Runs lists stage outcomes from the run ledger, newest first: document,
stage, output size, rewrite counts, and duration. Use --doc to filter to
one document.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("output-dir", defaultOutputDir, "base directory holding the run ledger")
	runsCmd.Flags().String("doc", "", "only show runs for this document ID")
	runsCmd.Flags().Int("limit", 0, "maximum number of runs to show (default 20)")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	docID, _ := cmd.Flags().GetString("doc")
	limit, _ := cmd.Flags().GetInt("limit")

	led, err := ledger.Open(outputDir, types.LedgerConfig{MaxResults: limit})
	if err != nil {
		return err
	}
	defer led.Close()

	records, err := led.ListRuns(context.Background(), docID, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-8s  %10s  %8s  %7s  %9s  %9s  %s\n",
		"Document", "Stage", "Chars", "Words", "Lines", "Rewritten", "Fallback", "Duration")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%-20s  %-8s  %10d  %8d  %7d  %9d  %9d  %s\n",
			rec.DocumentID, rec.Stage, rec.Chars, rec.Words, rec.Lines,
			rec.Rewritten, rec.Fallback, rec.Duration)
	}
	return nil
}
