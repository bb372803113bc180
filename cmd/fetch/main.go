// Command fetch prints the best quote for each item name as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skinquote/internal/aggregate"
	"skinquote/internal/config"
	"skinquote/internal/logger"
	"skinquote/internal/marketplaces"
	"skinquote/internal/provider"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	items := fs.String("items", getenv("ITEMS", "AK-47 | Redline (Field-Tested)"), "comma-separated market hash names")
	source := fs.String("source", "all", "marketplace to query: all, steam or dmarket")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	concurrency := fs.Int("concurrency", 4, "items looked up at once")
	configPath := fs.String("config", getenv("CONFIG_FILE", ""), "config file (optional)")
	_ = fs.Parse(os.Args[1:])

	if err := run(*configPath, *source, splitCSV(*items), *concurrency, *timeout, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, source string, items []string, concurrency int, timeout time.Duration, out io.Writer) error {
	if len(items) == 0 {
		return fmt.Errorf("no items given")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Log.Output = "stderr"
	log, _, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	markets := marketplaces.New(cfg, log, nil)
	lookup, err := lookupFunc(source, cfg.PreferredSource(), markets)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results, err := lookupAll(ctx, lookup, items, concurrency)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	log.Debug("done", zap.Int("items", len(items)))
	return nil
}

// lookupFunc selects between the comparator and a single marketplace.
func lookupFunc(source string, preferred provider.Source, markets marketplaces.Set) (func(context.Context, string) aggregate.Result, error) {
	if strings.EqualFold(source, "all") || source == "" {
		c := aggregate.New(preferred, markets.All()...)
		return c.Best, nil
	}
	src, err := aggregate.ParseSource(source)
	if err != nil {
		return nil, err
	}
	p := markets.Get(src)
	return func(ctx context.Context, name string) aggregate.Result {
		q, err := p.Lookup(ctx, name)
		if err != nil {
			q = nil
		}
		return aggregate.FromQuote(name, q)
	}, nil
}

// lookupAll resolves items with at most concurrency lookups in flight and
// keeps input order. A result produced after ctx expired is incomplete, so the
// whole run fails instead of printing it.
func lookupAll(ctx context.Context, lookup func(context.Context, string) aggregate.Result, items []string, concurrency int) ([]aggregate.Result, error) {
	results := make([]aggregate.Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, name := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = lookup(gctx, name)
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
