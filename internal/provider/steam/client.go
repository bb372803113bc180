package steam

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"skinquote/internal/provider"
)

const (
	baseURL    = "https://steamcommunity.com/market/priceoverview/"
	listingURL = "https://steamcommunity.com/market/listings"

	// AppID is the Steam application id of Counter-Strike 2.
	AppID = 730
	// CurrencyUSD is Steam's wallet currency code for US dollars.
	CurrencyUSD = 1
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=steam_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ provider.Provider = (*Client)(nil)

// Client looks up prices on the Steam Community Market.
type Client struct {
	// baseURL is the priceoverview endpoint.
	baseURL string
	// listingURL is the prefix of the public listing page.
	listingURL string
	appID      int
	currency   int
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// Option is a configuration option for the Steam client.
type Option func(*Client)

// WithBaseURL sets the priceoverview endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithListingURL sets the prefix used to build listing links.
func WithListingURL(u string) Option {
	return func(c *Client) {
		c.listingURL = u
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithAppID overrides the Steam application id.
func WithAppID(appID int) Option {
	return func(c *Client) {
		if appID > 0 {
			c.appID = appID
		}
	}
}

// WithCurrency overrides the Steam wallet currency code. Anything other than
// CurrencyUSD yields prices the normalizer would mislabel, so only change it
// against a test double.
func WithCurrency(currency int) Option {
	return func(c *Client) {
		if currency > 0 {
			c.currency = currency
		}
	}
}

// New creates a new Steam Community Market client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		listingURL: listingURL,
		appID:      AppID,
		currency:   CurrencyUSD,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Source() provider.Source { return provider.SourceSteam }

// ListingLink returns the public market page of itemName. The name is a
// path segment, so spaces become %20 and '|' becomes %7C.
func (c *Client) ListingLink(itemName string) string {
	return fmt.Sprintf("%s/%d/%s", strings.TrimRight(c.listingURL, "/"), c.appID, url.PathEscape(itemName))
}
