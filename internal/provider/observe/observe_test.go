package observe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"skinquote/internal/metrics"
	"skinquote/internal/provider"
	"skinquote/internal/provider/observe"
)

type stubProvider struct {
	q   *provider.Quote
	err error
}

func (s stubProvider) Source() provider.Source { return provider.SourceDMarket }
func (s stubProvider) Lookup(context.Context, string) (*provider.Quote, error) {
	return s.q, s.err
}

func TestLookup_FailureIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	cause := &provider.MarketplaceUnavailableError{Source: provider.SourceDMarket, Item: "Glock-18 | Fade (Factory New)", Err: errors.New("unexpected status code: 503")}
	p := observe.New(stubProvider{err: cause}, zap.New(core), metrics.New())

	q, err := p.Lookup(t.Context(), "Glock-18 | Fade (Factory New)")

	require.Nil(t, q)
	require.ErrorIs(t, err, cause)

	entries := logs.FilterMessage("marketplace lookup failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Equal(t, "dmarket", fields["source"])
	require.Equal(t, "Glock-18 | Fade (Factory New)", fields["item"])
	require.Contains(t, fields["error"], "503")
}

func TestLookup_PassThrough(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	want := &provider.Quote{Source: provider.SourceDMarket, ItemName: "x", Price: decimal.RequireFromString("1.00")}
	p := observe.New(stubProvider{q: want}, zap.New(core), nil)

	q, err := p.Lookup(t.Context(), "x")

	require.NoError(t, err)
	require.Same(t, want, q)
	require.Equal(t, provider.SourceDMarket, p.Source())
	require.Zero(t, logs.Len())
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	p := observe.New(stubProvider{}, nil, nil)
	q, err := p.Lookup(t.Context(), "x")
	require.NoError(t, err)
	require.Nil(t, q)
}
