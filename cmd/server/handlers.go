package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"skinquote/internal/aggregate"
	"skinquote/internal/catalog"
	"skinquote/internal/metrics"
	"skinquote/internal/provider"
)

//go:embed web/templates/index.html
var webFS embed.FS

var homePage = template.Must(template.ParseFS(webFS, "web/templates/index.html"))

type searcher interface {
	Search(ctx context.Context, fragment string) ([]string, error)
}

type app struct {
	log      *zap.Logger
	metrics  *metrics.Metrics
	steam    provider.Provider
	dmarket  provider.Provider
	compare  *aggregate.Comparator
	catalog  searcher
	timeout  time.Duration
	homePage *template.Template
}

type errorResponse struct {
	Error string `json:"error"`
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (a *app) routes() http.Handler {
	api := http.NewServeMux()
	a.handle(api, "GET /search", a.handleSingle(a.steam))
	a.handle(api, "GET /dmarket-search", a.handleSingle(a.dmarket))
	a.handle(api, "GET /item", a.handleCombined)
	a.handle(api, "GET /combined_item", a.handleCombined)
	a.handle(api, "GET /suggest", a.handleSuggest)
	a.handle(api, "GET /{$}", a.handleHome)
	api.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// promhttp negotiates its own compression, so /metrics stays outside withGzip.
	root := http.NewServeMux()
	root.Handle("GET /metrics", a.metrics.Handler())
	root.Handle("/", withJSONHeaders(withGzip(recoverPanic(a.log, limitBody(api)))))
	return root
}

func (a *app) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := strings.TrimSuffix(pattern[strings.IndexByte(pattern, ' ')+1:], "{$}")
	mux.Handle(pattern, instrument(route, a.log, a.metrics, h))
}

// handleSingle serves the cheapest listing of one marketplace. A failed
// lookup is reported like an item with no listings.
func (a *app) handleSingle(p provider.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := firstParam(r, "q", "item_name")
		if name == "" {
			writeError(w, http.StatusBadRequest, missingParam("q or item_name"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
		defer cancel()
		q, err := p.Lookup(ctx, name)
		if err != nil || q == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
			return
		}
		writeJSON(w, http.StatusOK, aggregate.FromQuote(name, q))
	}
}

func (a *app) handleCombined(w http.ResponseWriter, r *http.Request) {
	name := firstParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, missingParam("name"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	writeJSON(w, http.StatusOK, a.compare.Best(ctx, name))
}

func (a *app) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	names, err := a.catalog.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		a.log.Error("catalog search failed", zap.String("q", r.URL.Query().Get("q")), zap.Error(err))
		var cue *catalog.CatalogUnavailableError
		if errors.As(err, &cue) {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "catalog unavailable"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: names})
}

func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.homePage.Execute(w, nil); err != nil {
		a.log.Error("render home page", zap.Error(err))
	}
}

// firstParam returns the first non-blank query parameter among names.
func firstParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
