// Package observe wraps a provider so every lookup is logged and counted.
package observe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"skinquote/internal/metrics"
	"skinquote/internal/provider"
)

// Provider records the outcome and latency of each lookup of P. Failures are
// logged with source, item and cause, then returned unchanged.
type Provider struct {
	P       provider.Provider
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func New(p provider.Provider, log *zap.Logger, m *metrics.Metrics) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{P: p, Log: log, Metrics: m}
}

func (o *Provider) Source() provider.Source { return o.P.Source() }

func (o *Provider) Lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	start := time.Now()
	q, err := o.P.Lookup(ctx, itemName)
	elapsed := time.Since(start)
	source := string(o.P.Source())

	switch {
	case err != nil:
		o.Metrics.ObserveLookup(source, metrics.OutcomeError, elapsed)
		o.Log.Warn("marketplace lookup failed",
			zap.String("source", source),
			zap.String("item", itemName),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	case q == nil:
		o.Metrics.ObserveLookup(source, metrics.OutcomeNotFound, elapsed)
		o.Log.Debug("no listing", zap.String("source", source), zap.String("item", itemName))
	default:
		o.Metrics.ObserveLookup(source, metrics.OutcomeFound, elapsed)
	}
	return q, err
}
