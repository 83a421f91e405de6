// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ocr-pipeline CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr-pipeline/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	// OCR calls can run for minutes on long documents.
	defaultTimeout   = 10 * time.Minute
	defaultUserAgent = "ocr-pipeline/0.1"
	defaultOutputDir = "output"
)

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the ocr-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "ocr-pipeline",
	Short: "Convert PDFs to clean Markdown via OCR and LLM formatting",
	Long: `ocr-pipeline converts PDF documents into publication-quality Markdown.

The pipeline has three stages, each usable on its own: "ocr" acquires raw
Markdown and page images from the Mistral OCR API, "cleanup" applies
deterministic repairs to OCR artifacts, and "format" rewrites the document
section by section through the Gemini API with a verbatim fallback when
the model misbehaves. "run" chains all three and records the outcome in a
local run ledger; "verify" checks two renditions for content loss.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ocr-pipeline.yaml or ~/.config/ocr-pipeline/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ocr-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ocr-pipeline"))
		}
	}

	viper.SetEnvPrefix("OCR_PIPELINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
