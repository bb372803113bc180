// Package metrics holds the Prometheus collectors of the service on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skinquote"

// Lookup outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	lookups         *prometheus.CounterVec
	lookupDuration  *prometheus.HistogramVec
	catalogSearches *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Marketplace price lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		lookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Marketplace price lookup latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		catalogSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_searches_total",
			Help:      "Catalog searches by outcome.",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(source, outcome).Inc()
	m.lookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveCatalogSearch(outcome string) {
	if m == nil {
		return
	}
	m.catalogSearches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
