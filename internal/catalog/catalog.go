// Package catalog answers case-insensitive substring searches over the list
// of known item names.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skinquote/internal/metrics"
)

// DefaultLimit caps the number of names a search returns.
const DefaultLimit = 10

// ErrNotConfigured is the cause reported by UnconfiguredStore.
var ErrNotConfigured = errors.New("catalog database is not configured")

// CatalogUnavailableError means the store could not answer. It is never
// reported as an empty result.
type CatalogUnavailableError struct {
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %v", e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Err }

// Store returns up to limit names containing fragment, case-insensitively, in
// a stable order.
type Store interface {
	MatchNames(ctx context.Context, fragment string, limit int) ([]string, error)
}

type Searcher struct {
	store   Store
	limit   int
	metrics *metrics.Metrics
}

func NewSearcher(store Store, limit int, m *metrics.Metrics) *Searcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Searcher{store: store, limit: limit, metrics: m}
}

// Search returns matching names. A blank fragment returns an empty slice
// without touching the store.
func (s *Searcher) Search(ctx context.Context, fragment string) ([]string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return []string{}, nil
	}

	names, err := s.store.MatchNames(ctx, fragment, s.limit)
	if err != nil {
		s.metrics.ObserveCatalogSearch(metrics.OutcomeError)
		var cue *CatalogUnavailableError
		if errors.As(err, &cue) {
			return nil, err
		}
		return nil, &CatalogUnavailableError{Err: err}
	}
	if len(names) > s.limit {
		names = names[:s.limit]
	}
	if names == nil {
		names = []string{}
	}

	outcome := metrics.OutcomeFound
	if len(names) == 0 {
		outcome = metrics.OutcomeNotFound
	}
	s.metrics.ObserveCatalogSearch(outcome)
	return names, nil
}

// UnconfiguredStore stands in when no database URL is set, so routes that
// need the catalog fail per request instead of at startup.
type UnconfiguredStore struct{}

func (UnconfiguredStore) MatchNames(context.Context, string, int) ([]string, error) {
	return nil, &CatalogUnavailableError{Err: ErrNotConfigured}
}
