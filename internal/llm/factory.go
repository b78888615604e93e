package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/casefile/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama", "":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: ollama, openai, anthropic)", config.Provider)
	}
}

// clientTimeoutMargin keeps the HTTP client backstop above the per-call deadline
const clientTimeoutMargin = 30 * time.Second

// ConfigFromModel converts model.LLMConfig to llm.Config. The client
// timeout is only a backstop: callTimeout plus a margin, so the caller's
// per-call context always expires first.
func ConfigFromModel(c model.LLMConfig, callTimeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Provider = c.Provider
	cfg.Model = c.Model
	cfg.APIKey = c.APIKey
	cfg.BaseURL = c.BaseURL
	cfg.Temperature = c.Temperature
	cfg.HTTPProxy = c.HTTPProxy
	cfg.HTTPSProxy = c.HTTPSProxy
	if c.MaxTokens > 0 {
		cfg.MaxTokens = c.MaxTokens
	}
	if callTimeout > 0 {
		cfg.Timeout = callTimeout + clientTimeoutMargin
	}
	return cfg
}
