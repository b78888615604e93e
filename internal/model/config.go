package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete casefile configuration
type Config struct {
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// InputConfig selects the source documents
type InputConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir"`               // Directory holding the documents
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // e.g. [".pdf"]
}

// OutputConfig controls where results are written
type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`     // JSON result file
	SQLite string `yaml:"sqlite" mapstructure:"sqlite"` // Optional SQLite mirror, empty disables
}

// LLMConfig selects and configures the remote extraction service
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // ollama, openai, anthropic
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 = no ceiling
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`         // Empty falls back to HTTP_PROXY
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`       // Empty falls back to HTTPS_PROXY
}

// RetryConfig bounds the per-item retry loop
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`     // Delay before retry n is BaseDelay*n
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"` // Per remote call
}

// BatchConfig controls the batch driver
type BatchConfig struct {
	Cooldown     time.Duration `yaml:"cooldown" mapstructure:"cooldown"`           // Pause between items
	Dedupe       bool          `yaml:"dedupe" mapstructure:"dedupe"`               // Reuse results for identical text within a run
	StrictSchema bool          `yaml:"strict_schema" mapstructure:"strict_schema"` // Validate normalized fields against the case schema
	CacheDir     string        `yaml:"cache_dir" mapstructure:"cache_dir"`         // Persist dedupe results across runs; empty keeps them in memory
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`         // Zero never expires
	ClearCache   bool          `yaml:"-" mapstructure:"clear_cache"`               // Drop cache_dir entries before the run
}

// ExtractConfig configures the text extractors
type ExtractConfig struct {
	Pdftotext string `yaml:"pdftotext" mapstructure:"pdftotext"` // pdftotext binary
	MaxBytes  int64  `yaml:"max_bytes" mapstructure:"max_bytes"` // Cap on extracted text
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// MetricsConfig configures the Prometheus textfile export
type MetricsConfig struct {
	File string `yaml:"file" mapstructure:"file"` // Empty disables
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:        "./docs",
			Extensions: []string{".pdf"},
		},
		Output: OutputConfig{
			Path: "./output.json",
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3.2",
			BaseURL:     "http://localhost:11434",
			MaxTokens:   512,
			Temperature: 0,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			CallTimeout: 60 * time.Second,
		},
		Batch: BatchConfig{
			Cooldown: 500 * time.Millisecond,
		},
		Extract: ExtractConfig{
			Pdftotext: "pdftotext",
			MaxBytes:  1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Dir) == "" {
		return fmt.Errorf("input.dir is required")
	}
	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("input.extensions must list at least one extension")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative")
	}
	if c.Retry.CallTimeout <= 0 {
		return fmt.Errorf("retry.call_timeout must be positive")
	}
	if c.Batch.CacheTTL < 0 {
		return fmt.Errorf("batch.cache_ttl must not be negative")
	}
	if c.Batch.Cooldown < 0 {
		return fmt.Errorf("batch.cooldown must not be negative")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "ollama", "openai", "anthropic", "claude":
	default:
		return fmt.Errorf("unknown llm.provider: %q (supported: ollama, openai, anthropic)", c.LLM.Provider)
	}
	return nil
}
