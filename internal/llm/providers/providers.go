package providers

import (
	"context"
	"fmt"

	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/llm/gemini"
	"careerpilot-backend/internal/llm/ollama"
	"careerpilot-backend/internal/llm/openai"
	"careerpilot-backend/internal/shared/config"
)

// New builds the configured provider wrapped with the retrying client.
func New(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.LLMProvider {
	case "", "ollama":
		base = ollama.NewClient(cfg.OllamaServer, cfg.LLMModel, cfg.LLMTimeout)
	case "openai":
		base, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case "gemini":
		base, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, gemini.Options{Timeout: cfg.LLMTimeout})
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", llm.ErrNotConfigured, cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	provider := cfg.LLMProvider
	if provider == "" {
		provider = "ollama"
	}
	return llm.NewRetrying(base, provider), nil
}
