package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/errs"
)

// Request is a single-turn completion.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Model completes a prompt with raw text. Transport and API failures wrap errs.ErrModelCall.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Providers selectable through AI_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// NewFromConfig builds the configured provider, capped at AI_MAX_TOKENS per
// call. Hosted providers need an API key.
func NewFromConfig(cfg *config.Config) (Model, error) {
	m, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return WithTokenCap(m, cfg.AIMaxTokens), nil
}

func newProvider(cfg *config.Config) (Model, error) {
	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch cfg.AIProvider {
	case ProviderAnthropic, "":
		if cfg.AIApiKey == "" {
			return nil, fmt.Errorf("AI_API_KEY not set for anthropic: %w", errs.ErrModelUnavailable)
		}
		return NewAnthropicClient(cfg.AIApiKey, cfg.AIModel, cfg.AIBaseURL, timeout), nil
	case ProviderGemini:
		if cfg.AIApiKey == "" {
			return nil, fmt.Errorf("AI_API_KEY not set for gemini: %w", errs.ErrModelUnavailable)
		}
		return NewGeminiClient(cfg.AIApiKey, cfg.AIModel, cfg.AIBaseURL, timeout), nil
	case ProviderOllama:
		return NewOllamaClient(cfg.AIModel, cfg.AIBaseURL, timeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: %w", cfg.AIProvider, errs.ErrModelUnavailable)
	}
}

func modelCallError(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, errs.ErrModelCall, err)
}

// TokenCap bounds the MaxTokens of every request passed to Model.
type TokenCap struct {
	Model Model
	Max   int
}

// WithTokenCap returns m unchanged when max is not positive.
func WithTokenCap(m Model, max int) Model {
	if max <= 0 {
		return m
	}
	return &TokenCap{Model: m, Max: max}
}

func (t *TokenCap) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 || req.MaxTokens > t.Max {
		req.MaxTokens = t.Max
	}
	return t.Model.Complete(ctx, req)
}
