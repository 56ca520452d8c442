// Package provider contains the news-search API adapters. Each adapter
// normalizes provider results into domain.Article, runs descriptions through
// the content cleaner, and reports quota exhaustion as a distinct error kind
// so the orchestrator can skip to the next strategy instead of retrying a
// dead provider.
package provider

import (
	"context"
	"errors"

	"github.com/briefwire/briefwire/pkg/domain"
)

// error kinds recognized by the fetch orchestrator
var (
	// ErrRateLimited signals the provider's quota is exhausted, locally or
	// by an HTTP 429 from the remote API
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnavailable signals a network or HTTP failure
	ErrUnavailable = errors.New("provider unavailable")
	// ErrMalformedResponse signals the provider returned an unparsable body
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Provider is a news-search API adapter.
type Provider interface {
	// Fetch returns recent articles for a topic within the lookback window
	Fetch(ctx context.Context, topic string, daysBack int) ([]domain.Article, error)
	// Name identifies the provider in logs, cache labels and quota accounting
	Name() string
}

// Limiter tracks per-provider request budgets. The in-memory implementation
// is only safe for a single-instance deployment; multi-process setups must
// inject one backed by shared storage.
type Limiter interface {
	Allow(name string) bool
	Use(name string)
	Remaining(name string) int
}
