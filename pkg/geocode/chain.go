package geocode

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// addressCache is the slice of Cache the chain depends on.
type addressCache interface {
	Get(ctx context.Context, address string) (*Result, error)
	Put(ctx context.Context, address string, result *Result) error
}

// Chain tries providers in order until one matches. Provider errors are
// transient by contract: they are logged and the chain moves on, so a flaky
// primary never fails a resolution the fallback could have served.
type Chain struct {
	providers []Provider
	cache     addressCache
}

// ChainOption configures the Chain.
type ChainOption func(*Chain)

// WithChainCache adds a shared address cache consulted before any provider
// call and updated after each resolution, matches and misses alike.
func WithChainCache(cache *Cache) ChainOption {
	return func(c *Chain) { c.cache = cache }
}

// NewChain creates a Chain over the given providers.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{providers: providers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client. An empty address short-circuits without any
// external call; an address no provider matches returns unmatched, nil.
func (c *Chain) Geocode(ctx context.Context, address string) (*Result, error) {
	if strings.TrimSpace(address) == "" {
		return &Result{Matched: false}, nil
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, address); err == nil && cached != nil {
			return cached, nil
		}
	}

	answered := false
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, address)
		if err != nil {
			zap.L().Warn("geocode: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		answered = true
		if result != nil && result.Matched {
			c.store(ctx, address, result)
			return result, nil
		}
	}

	// A no-match is only cacheable when some provider affirmatively said so.
	// If every attempt errored the outage must stay retryable, not become a
	// persistent "not locatable" entry.
	noMatch := &Result{Matched: false}
	if answered {
		c.store(ctx, address, noMatch)
	}
	return noMatch, nil
}

// store caches a result, logging rather than surfacing cache write failures.
func (c *Chain) store(ctx context.Context, address string, result *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, address, result); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
}
