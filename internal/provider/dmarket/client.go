package dmarket

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"skinquote/internal/provider"
)

const (
	baseURL    = "https://api.dmarket.com/exchange/v1/market/items"
	listingURL = "https://dmarket.com/ingame-items/item-list/csgo-skins"

	// GameID is DMarket's identifier for Counter-Strike 2.
	GameID = "a8db"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=dmarket_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ provider.Provider = (*Client)(nil)

// Client looks up prices on the DMarket exchange.
type Client struct {
	baseURL    string
	listingURL string
	gameID     string
	httpClient HTTPClient
	header     http.Header
}

// Option is a configuration option for the DMarket client.
type Option func(*Client)

// WithBaseURL sets the market items endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithListingURL sets the page used to build listing links.
func WithListingURL(u string) Option {
	return func(c *Client) {
		c.listingURL = u
	}
}

// WithGameID overrides the DMarket game id.
func WithGameID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.gameID = id
		}
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

// New creates a new DMarket client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		listingURL: listingURL,
		gameID:     GameID,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Source() provider.Source { return provider.SourceDMarket }

// ListingLink returns the DMarket search page for itemName, with the name
// carried in the title query parameter.
func (c *Client) ListingLink(itemName string) string {
	sep := "?"
	if strings.Contains(c.listingURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stitle=%s", c.listingURL, sep, url.QueryEscape(itemName))
}
