// Package marketplaces builds the configured marketplace providers with
// throttling, logging and metrics applied.
package marketplaces

import (
	"go.uber.org/zap"

	"skinquote/internal/config"
	"skinquote/internal/httpx"
	"skinquote/internal/metrics"
	"skinquote/internal/provider"
	"skinquote/internal/provider/dmarket"
	"skinquote/internal/provider/observe"
	"skinquote/internal/provider/ratelimit"
	"skinquote/internal/provider/steam"
)

type Set struct {
	Steam   provider.Provider
	DMarket provider.Provider
}

// All returns the providers in comparison order.
func (s Set) All() []provider.Provider {
	return []provider.Provider{s.Steam, s.DMarket}
}

// Get returns the provider for src, or nil.
func (s Set) Get(src provider.Source) provider.Provider {
	switch src {
	case provider.SourceSteam:
		return s.Steam
	case provider.SourceDMarket:
		return s.DMarket
	default:
		return nil
	}
}

func New(cfg config.Config, log *zap.Logger, m *metrics.Metrics) Set {
	steamClient := steam.New(
		steam.WithBaseURL(cfg.Steam.Endpoint),
		steam.WithListingURL(cfg.Steam.ListingURL),
		steam.WithHTTPClient(httpx.New(cfg.Steam.Timeout())),
	)
	dmarketClient := dmarket.New(
		dmarket.WithBaseURL(cfg.DMarket.Endpoint),
		dmarket.WithListingURL(cfg.DMarket.ListingURL),
		dmarket.WithHTTPClient(httpx.New(cfg.DMarket.Timeout())),
	)
	return Set{
		Steam:   wrap(steamClient, cfg.Steam, log, m),
		DMarket: wrap(dmarketClient, cfg.DMarket, log, m),
	}
}

// wrap applies the configured throttle, then logging and metrics, so time
// spent waiting for the limiter counts toward the lookup.
func wrap(p provider.Provider, cfg config.Marketplace, log *zap.Logger, m *metrics.Metrics) provider.Provider {
	throttled := ratelimit.Wrap(p, cfg.MaxRequestsPerMinute, cfg.Burst, cfg.MinInterval())
	return observe.New(throttled, log, m)
}
