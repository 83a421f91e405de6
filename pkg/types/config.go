// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. OCR requests can take several
	// minutes for long documents, so the default is generous (10 m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "ocr-pipeline/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OCRConfig holds settings for the OCR acquisition stage.
type OCRConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the OCR model identifier (default "mistral-ocr-latest").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the OCR API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// IncludeImages controls whether page images are requested as base64
	// payloads and saved next to the Markdown output.
	IncludeImages bool `json:"include_images" yaml:"include_images"`

	// MaxRetries is the number of retry attempts for rate-limited calls.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CleanupConfig holds settings for the deterministic cleanup stage.
type CleanupConfig struct {
	// MaxBlankLines caps runs of consecutive blank lines (default 2).
	MaxBlankLines int `json:"max_blank_lines" yaml:"max_blank_lines"`

	// Abbreviations lists sentence-boundary false positives that the
	// spacing rule must not split (e.g. "e.g.", "et al."). When empty the
	// built-in set is used.
	Abbreviations []string `json:"abbreviations,omitempty" yaml:"abbreviations,omitempty"`

	// Truncate controls whether content after the References section is
	// dropped (default true).
	Truncate bool `json:"truncate" yaml:"truncate"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-1.5-pro-latest").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxAttempts is the number of attempts per section, including the
	// first call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the backoff base: attempt n waits BaseDelay * 2^(n-1)
	// before retrying (default 1s). Tests inject a tiny value.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`
}

// FormatConfig holds settings for the LLM formatting stage.
type FormatConfig struct {
	AIConfig `yaml:",inline"`

	// MaxChunkSize is the largest section, in bytes, sent in one API call.
	// Oversize sections are split further at paragraph boundaries (default 24576).
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"`

	// Workers bounds concurrent in-flight rewrite calls. Zero or one means
	// sections are rewritten sequentially, matching API rate limits.
	Workers int `json:"workers" yaml:"workers"`

	// MinLengthRatio and MaxLengthRatio bound the plausibility check: a
	// rewrite whose length falls outside [min*len(in), max*len(in)] is
	// rejected and retried (defaults 0.5 and 2.0).
	MinLengthRatio float64 `json:"min_length_ratio" yaml:"min_length_ratio"`
	MaxLengthRatio float64 `json:"max_length_ratio" yaml:"max_length_ratio"`

	// PromptFile optionally overrides the built-in formatting instructions.
	PromptFile string `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// MaxResults is the default maximum number of listed runs (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	OCR     OCRConfig     `json:"ocr" yaml:"ocr"`
	Cleanup CleanupConfig `json:"cleanup" yaml:"cleanup"`
	Format  FormatConfig  `json:"format" yaml:"format"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`

	// OutputDir is the base directory for per-document output folders.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
