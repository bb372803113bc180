// Package ratelimit throttles outbound marketplace lookups.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"skinquote/internal/provider"
)

// Limited waits on L before every lookup of P. Concurrent callers queue
// behind each other; a canceled or expiring context ends the wait early.
type Limited struct {
	P provider.Provider
	L *rate.Limiter
}

// NewTokenBucket allows rpm lookups per minute with bursts of up to burst.
func NewTokenBucket(p provider.Provider, rpm, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{P: p, L: rate.NewLimiter(rate.Limit(float64(rpm)/60), burst)}
}

// NewMinInterval spaces lookups at least interval apart.
func NewMinInterval(p provider.Provider, interval time.Duration) *Limited {
	return &Limited{P: p, L: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wrap applies the configured throttle to p. A positive rpm selects a token
// bucket; otherwise a positive minInterval selects spacing. With neither, p is
// returned as is.
func Wrap(p provider.Provider, rpm, burst int, minInterval time.Duration) provider.Provider {
	switch {
	case rpm > 0:
		return NewTokenBucket(p, rpm, burst)
	case minInterval > 0:
		return NewMinInterval(p, minInterval)
	default:
		return p
	}
}

func (l *Limited) Source() provider.Source { return l.P.Source() }

func (l *Limited) Lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	if err := l.L.Wait(ctx); err != nil {
		return nil, throttled(l.P.Source(), itemName, err)
	}
	return l.P.Lookup(ctx, itemName)
}

func throttled(source provider.Source, itemName string, err error) error {
	return &provider.MarketplaceUnavailableError{Source: source, Item: itemName, Err: fmt.Errorf("waiting for rate limit: %w", err)}
}
