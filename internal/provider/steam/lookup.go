package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"skinquote/internal/price"
	"skinquote/internal/provider"
)

// priceOverview is the priceoverview response body.
//
//	{"success":true,"lowest_price":"$1,234.56","volume":"1,023","median_price":"$1,250.00"}
type priceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

// Lookup returns the lowest Steam listing for itemName, or nil when Steam
// reports no listing. Every failure is a *provider.MarketplaceUnavailableError.
func (c *Client) Lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	q, err := c.lookup(ctx, itemName)
	if err != nil {
		return nil, &provider.MarketplaceUnavailableError{Source: provider.SourceSteam, Item: itemName, Err: err}
	}
	return q, nil
}

func (c *Client) lookup(ctx context.Context, itemName string) (*provider.Quote, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, errors.New("empty item name")
	}

	query := url.Values{}
	query.Set("appid", strconv.Itoa(c.appID))
	query.Set("currency", strconv.Itoa(c.currency))
	query.Set("market_hash_name", itemName)

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

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var body priceOverview
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding priceoverview response: %w", err)
	}
	if !body.Success || strings.TrimSpace(body.LowestPrice) == "" {
		return nil, nil
	}

	lowest, err := price.ParseFormatted(body.LowestPrice)
	if err != nil {
		return nil, fmt.Errorf("decoding lowest_price: %w", err)
	}

	q := &provider.Quote{
		Source:   provider.SourceSteam,
		ItemName: itemName,
		Price:    lowest,
		Link:     c.ListingLink(itemName),
		Volume:   parseVolume(body.Volume),
	}
	// median and volume are informational; a bad value only drops the field.
	if body.MedianPrice != "" {
		if median, err := price.ParseFormatted(body.MedianPrice); err == nil {
			q.MedianPrice = &median
		}
	}
	return q, nil
}

func parseVolume(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
