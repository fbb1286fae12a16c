// Package store opens the ledger persistence backend named by a connection
// string and runs its migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/splax/ledger/internal/app/migrate"
	"github.com/splax/ledger/internal/repository"
	"github.com/splax/ledger/internal/repository/postgres"
	"github.com/splax/ledger/internal/repository/sqlite"
)

// Store owns the connection pool for the lifetime of the process.
type Store struct {
	repository.Ledger
	sqlDB     *sql.DB
	dialect   string
	closeOnce sync.Once
	closeErr  error
}

// Open connects to the backend selected by dsn. postgres:// and
// postgresql:// URLs use pgx; sqlite://<path>, sqlite:<path> and file:<path>
// use SQLite.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Store{
			Ledger:  postgres.New(pool),
			sqlDB:   stdlib.OpenDBFromPool(pool),
			dialect: migrate.DialectPostgres,
		}, nil
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasPrefix(dsn, "file:"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		repo, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return &Store{Ledger: repo, sqlDB: repo.DB(), dialect: migrate.DialectSQLite}, nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme in %q", redact(dsn))
	}
}

// Dialect returns the goose dialect of the backend.
func (s *Store) Dialect() string { return s.dialect }

// Migrator returns a migration runner bound to this store.
func (s *Store) Migrator(log *slog.Logger) (migrate.Runner, error) {
	return migrate.New(s.sqlDB, s.dialect, log)
}

// Close releases the pool. Subsequent calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.dialect == migrate.DialectPostgres {
			_ = s.sqlDB.Close()
		}
		s.closeErr = s.Ledger.Close()
	})
	return s.closeErr
}

// redact hides credentials in a connection string for error messages.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
