// Package aggregate picks the cheapest quote for an item across marketplaces.
package aggregate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"skinquote/internal/price"
	"skinquote/internal/provider"
)

// NoPrice is reported as lowest_price when no marketplace returned a quote.
const NoPrice = "N/A"

// Result is the single shape returned for a price lookup regardless of how
// many marketplaces answered.
type Result struct {
	ItemName    string `json:"item_name"`
	LowestPrice string `json:"lowest_price"`
	Currency    string `json:"currency,omitempty"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	MedianPrice string `json:"median_price,omitempty"`
	Volume      int    `json:"volume,omitempty"`
}

// FromQuote renders a quote. A nil quote yields the no-data result for itemName.
func FromQuote(itemName string, q *provider.Quote) Result {
	if q == nil {
		return Result{ItemName: itemName, LowestPrice: NoPrice, Source: string(provider.SourceNone)}
	}
	r := Result{
		ItemName:    q.ItemName,
		LowestPrice: price.Format(q.Price),
		Currency:    price.Currency,
		Source:      string(q.Source),
		Link:        q.Link,
		Volume:      q.Volume,
	}
	if q.MedianPrice != nil {
		r.MedianPrice = price.Format(*q.MedianPrice)
	}
	return r
}

var aliasMap = map[string]provider.Source{
	"steam":          provider.SourceSteam,
	"steamcommunity": provider.SourceSteam,
	"scm":            provider.SourceSteam,
	"a":              provider.SourceSteam,
	"dmarket":        provider.SourceDMarket,
	"dm":             provider.SourceDMarket,
	"b":              provider.SourceDMarket,
}

// ParseSource maps a configured marketplace name to a Source, ignoring case
// and surrounding spaces.
func ParseSource(s string) (provider.Source, error) {
	if src, ok := aliasMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return src, nil
	}
	return "", fmt.Errorf("unknown marketplace %q", s)
}

// Comparator asks every provider for a quote and keeps the cheapest one.
type Comparator struct {
	providers []provider.Provider
	preferred provider.Source
}

// New returns a comparator over providers. On an exact price tie the quote
// from preferred wins; if neither tied quote is from preferred, the earlier
// provider wins.
func New(preferred provider.Source, providers ...provider.Provider) *Comparator {
	return &Comparator{providers: providers, preferred: preferred}
}

// Best looks up itemName on all providers concurrently. Provider failures
// count as no quote from that provider.
func (c *Comparator) Best(ctx context.Context, itemName string) Result {
	quotes := make([]*provider.Quote, len(c.providers))

	var wg sync.WaitGroup
	for i, p := range c.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q, err := p.Lookup(ctx, itemName); err == nil {
				quotes[i] = q
			}
		}()
	}
	wg.Wait()

	return FromQuote(itemName, c.pick(quotes))
}

func (c *Comparator) pick(quotes []*provider.Quote) *provider.Quote {
	var best *provider.Quote
	for _, q := range quotes {
		if q == nil {
			continue
		}
		if best == nil {
			best = q
			continue
		}
		switch cmp := q.Price.Cmp(best.Price); {
		case cmp < 0:
			best = q
		case cmp == 0 && q.Source == c.preferred && best.Source != c.preferred:
			best = q
		}
	}
	return best
}
