package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/splax/ledger/internal/repository"
)

// Repository implements persistence interfaces on SQLite.
type Repository struct {
	db           *sql.DB
	users        *userStore
	tags         *tagStore
	transactions *transactionStore
}

// ensure Repository satisfies interfaces.
var (
	_ repository.Ledger                = (*Repository)(nil)
	_ repository.UserRepository        = (*userStore)(nil)
	_ repository.TagRepository         = (*tagStore)(nil)
	_ repository.TransactionRepository = (*transactionStore)(nil)
)

// Open opens the SQLite database at path with foreign keys enforced on
// every pooled connection.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty sqlite path")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	poolSettingsFor(path).apply(db)
	return New(db), nil
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// poolSettingsFor pins an in-memory database to one connection that is
// never recycled, since the data lives and dies with that connection.
func poolSettingsFor(path string) poolSettings {
	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		return poolSettings{maxOpen: 1, maxIdle: 1}
	}
	return poolSettings{maxOpen: 4, maxIdle: 2, maxLifetime: time.Hour}
}

func (p poolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
	db.SetConnMaxIdleTime(p.maxIdleTime)
}

// New wraps an already opened *sql.DB.
func New(db *sql.DB) *Repository {
	return &Repository{
		db:           db,
		users:        &userStore{db: db},
		tags:         &tagStore{db: db},
		transactions: &transactionStore{db: db},
	}
}

// DB exposes the handle for schema migrations.
func (r *Repository) DB() *sql.DB { return r.db }

// Users returns the user repository.
func (r *Repository) Users() repository.UserRepository { return r.users }

// Tags returns the tag repository.
func (r *Repository) Tags() repository.TagRepository { return r.tags }

// Transactions returns the transaction repository.
func (r *Repository) Transactions() repository.TransactionRepository { return r.transactions }

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func isConstraint(err error, kind string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), kind)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
