package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Source identifies the marketplace a quote came from.
type Source string

const (
	SourceSteam   Source = "steam"
	SourceDMarket Source = "dmarket"
	// SourceNone marks a result for which no marketplace had data.
	SourceNone Source = "none"
)

// Quote is the normalized lowest asking price of one item on one marketplace.
// Price is always in USD with two fractional digits.
type Quote struct {
	Source   Source
	ItemName string
	Price    decimal.Decimal
	Link     string

	// Optional extras; only Steam reports them.
	MedianPrice *decimal.Decimal
	Volume      int
}

// Provider looks up the cheapest current listing of a named item.
// A nil quote with a nil error means the marketplace has no listing.
type Provider interface {
	Source() Source
	Lookup(ctx context.Context, itemName string) (*Quote, error)
}

// MarketplaceUnavailableError wraps any failure talking to a marketplace:
// transport errors, timeouts, non-2xx responses and undecodable bodies.
type MarketplaceUnavailableError struct {
	Source Source
	Item   string
	Err    error
}

func (e *MarketplaceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable for %q: %v", e.Source, e.Item, e.Err)
}

func (e *MarketplaceUnavailableError) Unwrap() error { return e.Err }
