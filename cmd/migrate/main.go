// Command migrate applies the catalog schema migrations.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"skinquote/internal/logger"
)

const (
	databaseURLFlag   = "database-url"
	migrationPathFlag = "migrations-path"
)

func main() {
	databaseURL := pflag.StringP(databaseURLFlag, "d", os.Getenv("DATABASE_URL"), "postgres url; defaults to DATABASE_URL")
	migrationsPath := pflag.StringP(migrationPathFlag, "m", "migrations", "directory with migration files")
	down := pflag.Bool("down", false, "roll back all migrations")
	pflag.Parse()

	log, _, err := logger.New(logger.Config{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if *databaseURL == "" {
		log.Error("too few args", zap.Error(fmt.Errorf("--%s flag or DATABASE_URL: required", databaseURLFlag)))
		os.Exit(2)
	}

	if err := makeMigrations(log, *databaseURL, *migrationsPath, *down); err != nil {
		log.Error("failed to migrate", zap.Error(err))
		os.Exit(2)
	}
}

type migrationLogger struct {
	log *zap.SugaredLogger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimRight(format, "\n"), v...)
}

func (l migrationLogger) Verbose() bool { return true }

func makeMigrations(log *zap.Logger, databaseURL, migrationsPath string, down bool) error {
	m, err := migrate.New("file://"+migrationsPath, pgx5URL(databaseURL))
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("failed to close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()
	m.Log = migrationLogger{log: log.Sugar()}

	apply := m.Up
	if down {
		apply = m.Down
	}
	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return nil
		}
		return err
	}
	m.Log.Printf("migrations applied")
	return nil
}

// pgx5URL rewrites a postgres:// url to the scheme the pgx5 driver registers.
func pgx5URL(u string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(u, scheme) {
			return "pgx5://" + strings.TrimPrefix(u, scheme)
		}
	}
	return u
}
