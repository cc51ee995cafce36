package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/config"
	"github.com/nikhilbhutani/promptlab/internal/models"
)

// ProviderFactory builds a provider bound to one model configuration's
// credentials and region.
type ProviderFactory func(ctx context.Context, mc models.ModelConfig) (Provider, error)

type gateway struct {
	factories  map[string]ProviderFactory
	defaults   config.InferenceConfig
	maxRetries int
	timeout    time.Duration
	backoff    func(attempt int) time.Duration
	logger     *zap.Logger
}

type Option func(*gateway)

// WithProvider registers or replaces the factory for a provider name.
func WithProvider(name string, f ProviderFactory) Option {
	return func(g *gateway) { g.factories[name] = f }
}

// WithBackoff overrides the delay before retry attempt n (n >= 1).
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(g *gateway) { g.backoff = f }
}

func NewGateway(cfg config.InferenceConfig, logger *zap.Logger, opts ...Option) Gateway {
	g := &gateway{
		factories: map[string]ProviderFactory{
			models.ProviderBedrock:   newBedrockFromConfig,
			models.ProviderOpenAI:    newOpenAIFromConfig,
			models.ProviderAnthropic: newAnthropicFromConfig,
		},
		defaults:   cfg,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 500 * time.Millisecond
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gateway) Invoke(ctx context.Context, req Request) (*Result, error) {
	name := req.Model.Provider
	if name == "" {
		name = models.ProviderBedrock
	}
	factory, ok := g.factories[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	p, err := factory(ctx, req.Model)
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", name, err)
	}

	req.Params = g.withDefaults(req.Params)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.backoff(attempt)):
			}
			g.logger.Debug("retrying model call",
				zap.String("provider", name),
				zap.String("model", req.Model.ModelID),
				zap.Int("attempt", attempt),
			)
		}

		start := time.Now()
		res, err := p.Converse(ctx, req)
		if err == nil {
			if res.LatencyMs == 0 {
				res.LatencyMs = time.Since(start).Milliseconds()
			}
			if res.TotalTokens == 0 {
				res.TotalTokens = res.InputTokens + res.OutputTokens
			}
			return res, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", name, lastErr)
}

func (g *gateway) withDefaults(p Params) Params {
	if p.MaxTokens == nil {
		v := g.defaults.MaxTokens
		p.MaxTokens = &v
	}
	if p.Temperature == nil {
		v := g.defaults.Temperature
		p.Temperature = &v
	}
	if p.TopP == nil {
		v := g.defaults.TopP
		p.TopP = &v
	}
	return p
}
