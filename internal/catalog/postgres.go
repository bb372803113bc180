package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const matchNamesQuery = `
	SELECT market_hash_name
	FROM skins
	WHERE market_hash_name ILIKE $1 ESCAPE '\'
	ORDER BY market_hash_name
	LIMIT $2`

const insertNameQuery = `
	INSERT INTO skins (market_hash_name)
	VALUES ($1)
	ON CONFLICT (market_hash_name) DO NOTHING`

// PostgresStore reads item names from the skins table.
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenPostgres prepares a connection pool for dsn. No connection is made
// until the first query or Ping.
func OpenPostgres(dsn string, log *zap.Logger) (*PostgresStore, error) {
	const op = "catalog.OpenPostgres"

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid database url: %w", op, err)
	}
	db, err := sql.Open("pgx", stdlib.RegisterConnConfig(connConfig))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, log: log}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	const op = "PostgresStore.Ping"
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: database is unavailable: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// MatchNames holds one connection for the duration of the query and returns
// it to the pool on every path.
func (s *PostgresStore) MatchNames(ctx context.Context, fragment string, limit int) (names []string, err error) {
	const op = "PostgresStore.MatchNames"

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, &CatalogUnavailableError{Err: fmt.Errorf("%s: acquire connection: %w", op, err)}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.log.Warn("failed to release connection", zap.String("op", op), zap.Error(cerr))
		}
	}()

	rows, err := conn.QueryContext(ctx, matchNamesQuery, "%"+escapeLike(fragment)+"%", limit)
	if err != nil {
		return nil, &CatalogUnavailableError{Err: fmt.Errorf("%s: query: %w", op, err)}
	}
	defer rows.Close()

	names = make([]string, 0, limit)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &CatalogUnavailableError{Err: fmt.Errorf("%s: scan: %w", op, err)}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogUnavailableError{Err: fmt.Errorf("%s: rows: %w", op, err)}
	}
	return names, nil
}

// InsertNames adds names to the catalog in one transaction, skipping blanks
// and names already present. It returns the number of rows inserted.
func (s *PostgresStore) InsertNames(ctx context.Context, names []string) (inserted int64, storeErr error) {
	const op = "PostgresStore.InsertNames"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}
	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}
		if err := tx.Rollback(); err != nil {
			s.log.Error("failed to rollback tx", zap.String("op", op), zap.Error(err))
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertNameQuery)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer stmt.Close()

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("%s: insert %q: %w", op, name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		inserted += n
	}
	return inserted, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
