package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"skinquote/internal/aggregate"
	"skinquote/internal/catalog"
	"skinquote/internal/config"
	"skinquote/internal/logger"
	"skinquote/internal/marketplaces"
	"skinquote/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	loader, err := config.NewLoader(fs)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	log, level, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loader.Watch(func(c config.Config) {
		if err := logger.SetLevel(level, c.Log.Level); err != nil {
			log.Warn("invalid log level in reloaded config", zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("log_level", level.String()))
	}, func(err error) {
		log.Warn("ignoring invalid config change", zap.Error(err))
	})

	m := metrics.New()

	markets := marketplaces.New(cfg, log, m)

	store, closeStore := openCatalog(cfg.Catalog, log)
	defer closeStore()

	a := &app{
		log:      log,
		metrics:  m,
		steam:    markets.Steam,
		dmarket:  markets.DMarket,
		compare:  aggregate.New(cfg.PreferredSource(), markets.All()...),
		catalog:  catalog.NewSearcher(store, cfg.Catalog.Limit, m),
		timeout:  cfg.RequestTimeout(),
		homePage: homePage,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("preferred_source", string(cfg.PreferredSource())),
			zap.String("config_file", loader.Path()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	sdNotify(log, daemon.SdNotifyReady)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	}

	sdNotify(log, daemon.SdNotifyStopping)
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openCatalog never fails: without a usable database URL, catalog routes
// answer 500 per request while price routes keep working.
func openCatalog(cfg config.Catalog, log *zap.Logger) (catalog.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set; catalog search is unavailable")
		return catalog.UnconfiguredStore{}, func() {}
	}
	store, err := catalog.OpenPostgres(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("catalog database url rejected", zap.Error(err))
		return catalog.UnconfiguredStore{}, func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Warn("catalog database is not reachable yet", zap.Error(err))
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close catalog database", zap.Error(err))
		}
	}
}

func sdNotify(log *zap.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Debug("sd_notify failed", zap.String("state", state), zap.Error(err))
	}
}
