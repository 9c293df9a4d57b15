package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-study/internal/platform/config"
)

// NewRouterFromConfig registers every configured provider in fallback order:
// OpenAI, Anthropic, Google, DeepSeek, OpenRouter, Ollama.
func NewRouterFromConfig(ctx context.Context, cfg config.AIConfig) (*Router, error) {
	router := NewRouter()

	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", NewOpenAIProvider(cfg.OpenAI.APIKey, WithModel(cfg.OpenAI.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		router.Register("anthropic", NewAnthropicProvider(cfg.Anthropic.APIKey, WithAnthropicModel(cfg.Anthropic.Model)))
	}
	if cfg.Google.APIKey != "" {
		google, err := NewGoogleProvider(ctx, cfg.Google.APIKey, cfg.Google.Model)
		if err != nil {
			return nil, fmt.Errorf("configuring google provider: %w", err)
		}
		router.Register("google", google)
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", NewOpenRouterProvider(cfg.OpenRouter.APIKey))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", NewOllamaProvider(cfg.Ollama.URL, WithModel(cfg.Ollama.Model)))
	}

	slog.Info("AI providers configured", "providers", router.Providers())
	return router, nil
}
