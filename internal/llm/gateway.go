package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/buchungsbutler/voiceagent/internal/config"
)

type route struct {
	provider string
	model    string
}

type gateway struct {
	providers map[string]Provider
	primary   route
	fallback  route
	retries   int
	backoff   time.Duration
}

func NewGateway(cfg config.LLMConfig) Gateway {
	providers := make(map[string]Provider)
	if cfg.OpenAIKey != "" {
		providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicKey != "" {
		providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	return newGateway(providers, cfg)
}

func newGateway(providers map[string]Provider, cfg config.LLMConfig) *gateway {
	return &gateway{
		providers: providers,
		primary:   route{provider: cfg.DefaultProvider, model: cfg.DefaultModel},
		fallback:  route{provider: cfg.FallbackProvider, model: cfg.FallbackModel},
		retries:   cfg.MaxRetries,
		backoff:   500 * time.Millisecond,
	}
}

func (g *gateway) provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// Chat sends req to the primary provider and, once its retries are exhausted,
// to the fallback provider with the fallback model.
func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	primary := g.primary
	if req.Provider != "" {
		primary = route{provider: req.Provider, model: req.Model}
	}
	if req.Model != "" {
		primary.model = req.Model
	}

	resp, err := g.chatWithRetry(ctx, primary, req)
	if err == nil || g.fallback.provider == "" || g.fallback.provider == primary.provider {
		return resp, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("primary provider failed, trying fallback",
		"primary", primary.provider,
		"fallback", g.fallback.provider,
		"error", err,
	)
	return g.chatWithRetry(ctx, g.fallback, req)
}

func (g *gateway) chatWithRetry(ctx context.Context, rt route, req ChatRequest) (*ChatResponse, error) {
	p, err := g.provider(rt.provider)
	if err != nil {
		return nil, err
	}
	req.Provider = rt.provider
	req.Model = rt.model
	req.applyDefaults()

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt*attempt) * g.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			slog.Debug("retrying LLM call", "provider", rt.provider, "attempt", attempt)
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", rt.provider, lastErr)
}
