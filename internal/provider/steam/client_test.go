package steam_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"skinquote/internal/price"
	"skinquote/internal/provider"
	"skinquote/internal/provider/steam"
)

const awp = "AWP | Atheris (Field-Tested)"

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))
	return &http.Response{StatusCode: status, Body: io.NopCloser(buffer)}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Contains(t, req.URL.Path, "/market/priceoverview")
			require.Equal(t, "730", req.URL.Query().Get("appid"))
			require.Equal(t, "1", req.URL.Query().Get("currency"))
			require.Equal(t, awp, req.URL.Query().Get("market_hash_name"))

			return jsonResponse(t, http.StatusOK, map[string]any{
				"success":      true,
				"lowest_price": "$1,234.56",
				"median_price": "$1,250.00",
				"volume":       "1,023",
			}), nil
		}).
		Times(1)

	// Arrange: create a new client
	client := steam.New(steam.WithHTTPClient(httpClient))

	// Act: look up the item
	q, err := client.Lookup(t.Context(), awp)

	// Assert: the quote is normalized
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Equal(t, provider.SourceSteam, q.Source)
	require.Equal(t, awp, q.ItemName)
	require.Equal(t, "1234.56", price.Format(q.Price))
	require.NotNil(t, q.MedianPrice)
	require.Equal(t, "1250.00", price.Format(*q.MedianPrice))
	require.Equal(t, 1023, q.Volume)
	require.Equal(t, "https://steamcommunity.com/market/listings/730/AWP%20%7C%20Atheris%20%28Field-Tested%29", q.Link)
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]map[string]any{
		"success false":   {"success": false},
		"no lowest price": {"success": true, "volume": "3"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// Arrange: create a mock HTTP client
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(jsonResponse(t, http.StatusOK, body), nil).
				Times(1)

			// Act: look up the item
			q, err := steam.New(steam.WithHTTPClient(httpClient)).Lookup(t.Context(), awp)

			// Assert: not found is not an error
			require.NoError(t, err)
			require.Nil(t, q)
		})
	}
}

func TestLookup_Unavailable(t *testing.T) {
	t.Parallel()

	for name, do := range map[string]func(*http.Request) (*http.Response, error){
		"transport": func(*http.Request) (*http.Response, error) {
			return nil, context.DeadlineExceeded
		},
		"server error": func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader(`{"success":false}`))}, nil
		},
		"rate limited": func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader(""))}, nil
		},
		"invalid json": func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("invalid json"))}, nil
		},
		"malformed price": func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"success":true,"lowest_price":"free"}`))}, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// Arrange: create a mock HTTP client
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(do).Times(1)

			// Act: look up the item
			q, err := steam.New(steam.WithHTTPClient(httpClient)).Lookup(t.Context(), awp)

			// Assert: the failure is a MarketplaceUnavailableError
			require.Nil(t, q)
			var mue *provider.MarketplaceUnavailableError
			require.True(t, errors.As(err, &mue), "err=%v", err)
			require.Equal(t, provider.SourceSteam, mue.Source)
			require.Equal(t, awp, mue.Item)
		})
	}
}

func TestLookup_MalformedPriceIsWrapped(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, http.StatusOK, map[string]any{"success": true, "lowest_price": "-$1.00"}), nil)

	_, err := steam.New(steam.WithHTTPClient(httpClient)).Lookup(t.Context(), awp)

	var mpe *price.MalformedPriceError
	require.ErrorAs(t, err, &mpe)
}

func TestLookup_EmptyNameSkipsRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	_, err := steam.New(steam.WithHTTPClient(httpClient)).Lookup(t.Context(), "  ")
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080/priceoverview"

	// Assert: overrides reach the request
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			require.Equal(t, "bar", req.Header.Get("foo"))
			require.Equal(t, "440", req.URL.Query().Get("appid"))
			return jsonResponse(t, http.StatusOK, map[string]any{"success": true, "lowest_price": "$0.03"}), nil
		}).
		Times(1)

	client := steam.New(
		steam.WithHTTPClient(httpClient),
		steam.WithBaseURL(baseURL),
		steam.WithHeader(http.Header{"foo": []string{"bar"}}),
		steam.WithAppID(440),
		steam.WithListingURL("http://localhost:8080/listings/"),
	)

	// Act: look up the item
	q, err := client.Lookup(t.Context(), "Mann Co. Supply Crate Key")

	// Assert: link uses the overridden listing prefix and app id
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/listings/440/Mann%20Co.%20Supply%20Crate%20Key", q.Link)
	require.Equal(t, provider.SourceSteam, client.Source())
}
