package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/visionaid/go-visionaid/internal/log"
)

// Chain implements Provider by trying providers in order. The first
// success wins. Alerts must keep flowing when the primary backend is
// down, so run the cloud provider first and a local fallback second.
type Chain struct {
	providers []Provider
}

var _ Provider = (*Chain)(nil)

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrAllProvidersFailed
	}
	return &Chain{providers: providers}, nil
}

// Synthesize tries each provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				log.Info("fallback voice provider succeeded", "provider_index", i)
			}
			return result, nil
		}
		errs = append(errs, err)
		log.Warn("voice provider failed, trying next", "provider_index", i, "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// Health succeeds if at least one provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error
	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}
	if healthy == 0 {
		return fmt.Errorf("all %d voice providers unhealthy: %w", len(c.providers), lastErr)
	}
	return nil
}

// Close closes every provider, returning the last error seen.
func (c *Chain) Close() error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
