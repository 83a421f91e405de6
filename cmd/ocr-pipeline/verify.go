// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr-pipeline/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <original.md> <processed.md>",
	Short: "Compare two renditions of a document for content loss",
	Long: `Verify inventories sections, citation markers, math expressions, image
references, and table rows in both files and reports anything the processed
rendition lost. Sections removed by the references truncation are reported
separately and do not count as loss.`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("report", "", "also write the report as YAML to this path")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	report, err := verify.CompareFiles(args[0], args[1], os.Stdout)
	if err != nil {
		return err
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := verify.WriteReport(report, reportPath); err != nil {
			return err
		}
	}

	if !report.Clean() {
		return fmt.Errorf("%d potential content loss issue(s)", report.Issues())
	}
	return nil
}
