package genai

import (
	"context"
	"log/slog"
)

// CreateCompleter builds the completion chain from cfg: every model of the
// first configured provider, then every model of the next, and so on.
// Returns nil when no provider has an API key.
func CreateCompleter(ctx context.Context, cfg LLMConfig, recorder Recorder) *FallbackCompleter {
	providers := cfg.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	var chain []Completer
	for _, p := range providers {
		pc := cfg.providerConfig(p)
		if pc == nil || pc.APIKey == "" {
			continue
		}
		models := pc.Models
		if len(models) == 0 {
			models = defaultModels(p)
		}
		for _, m := range models {
			c, err := newCompleter(ctx, p, *pc, m)
			if err != nil {
				slog.WarnContext(ctx, "failed to create completer", "provider", p, "model", m, "error", err)
				continue
			}
			chain = append(chain, c)
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured")
		return nil
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = RetryConfig{
			MaxAttempts:  DefaultMaxRetryAttempts,
			InitialDelay: DefaultInitialRetryDelay,
			MaxDelay:     DefaultMaxRetryDelay,
		}
	}

	slog.InfoContext(ctx, "completer configured",
		"primary", chain[0].Provider(),
		"chain_size", len(chain))

	return NewFallbackCompleter(retry, recorder, chain...)
}

func newCompleter(ctx context.Context, p Provider, pc ProviderConfig, model string) (Completer, error) {
	switch p {
	case ProviderGemini:
		return newGeminiCompleter(ctx, pc.APIKey, model, pc.BaseURL)
	default:
		return newOpenAICompleter(pc.APIKey, model, pc.BaseURL)
	}
}

func defaultModels(p Provider) []string {
	if p == ProviderGemini {
		return DefaultGeminiModels
	}
	return DefaultOpenAIModels
}
