// Package llm adapts hosted model SDKs to generation.Model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/generation"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-2.5-flash"
)

// Config selects and tunes the provider. Temperature and MaxOutputTokens
// apply when a request leaves them unset.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int
}

// New builds the configured provider.
func New(ctx context.Context, cfg Config, log logger.Logger) (generation.Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key is required for provider %q", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return NewGemini(ctx, cfg, log)
	case ProviderOpenAI:
		return NewOpenAI(cfg, log), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func (c Config) temperature(req generation.Request) float32 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return c.Temperature
}

func (c Config) maxTokens(req generation.Request) int {
	if req.MaxOutputTokens > 0 {
		return req.MaxOutputTokens
	}
	return c.MaxOutputTokens
}

func isOverloadStatus(code int) bool {
	return code == 429 || code == 503 || code == 529
}

// classify wraps provider errors that mean "try later" in
// generation.ErrOverloaded.
func classify(provider string, status int, err error) error {
	if isOverloadStatus(status) {
		return fmt.Errorf("%s: %w: %v", provider, generation.ErrOverloaded, err)
	}
	return fmt.Errorf("%s: %w", provider, err)
}
