package dmarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"skinquote/internal/price"
	"skinquote/internal/provider"
)

// marketItems is the market items response body. Current payloads list
// offers under "objects"; older ones used "Items".
//
//	{"objects":[{"title":"AWP | Atheris (Field-Tested)","price":{"USD":"250"}}],"total":{"offers":1}}
type marketItems struct {
	Objects []offer `json:"objects"`
	Items   []offer `json:"Items"`
}

func (m marketItems) offers() []offer {
	if len(m.Objects) > 0 {
		return m.Objects
	}
	return m.Items
}

type offer struct {
	Title string     `json:"title"`
	Price offerPrice `json:"price"`
}

type offerPrice struct {
	USD cents `json:"USD"`
}

// cents accepts both "250" and 250.
type cents string

func (c *cents) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = cents(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("price.USD: %w", err)
	}
	*c = cents(n.String())
	return nil
}

// Lookup returns the cheapest DMarket offer for itemName, or nil when DMarket
// has no offer. Every failure is a *provider.MarketplaceUnavailableError.
func (c *Client) Lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	q, err := c.lookup(ctx, itemName)
	if err != nil {
		return nil, &provider.MarketplaceUnavailableError{Source: provider.SourceDMarket, Item: itemName, Err: err}
	}
	return q, nil
}

func (c *Client) lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, errors.New("empty item name")
	}

	query := url.Values{}
	query.Set("gameId", c.gameID)
	query.Set("title", itemName)
	query.Set("limit", "1")
	query.Set("orderBy", "price")
	query.Set("orderDir", "asc")
	query.Set("currency", price.Currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("bad request with title=%q: %s", itemName, strings.TrimSpace(string(b)))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body marketItems
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding market items response: %w", err)
	}

	offers := body.offers()
	if len(offers) == 0 {
		return nil, nil
	}

	amount, err := price.ParseMinorUnits(string(offers[0].Price.USD))
	if err != nil {
		return nil, fmt.Errorf("decoding price.USD: %w", err)
	}

	return &provider.Quote{
		Source:   provider.SourceDMarket,
		ItemName: itemName,
		Price:    amount,
		Link:     c.ListingLink(itemName),
	}, nil
}
