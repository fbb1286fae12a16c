package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/ledger/internal/repository"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNumericOutOfRange   = "22003"
)

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	db           DB
	users        *userStore
	tags         *tagStore
	transactions *transactionStore
}

// New constructs a Repository over an already opened pool.
func New(db DB) *Repository {
	return &Repository{
		db:           db,
		users:        &userStore{db: db},
		tags:         &tagStore{db: db},
		transactions: &transactionStore{db: db},
	}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.Ledger                = (*Repository)(nil)
	_ repository.UserRepository        = (*userStore)(nil)
	_ repository.TagRepository         = (*tagStore)(nil)
	_ repository.TransactionRepository = (*transactionStore)(nil)
)

// Users returns the user repository.
func (r *Repository) Users() repository.UserRepository { return r.users }

// Tags returns the tag repository.
func (r *Repository) Tags() repository.TagRepository { return r.tags }

// Transactions returns the transaction repository.
func (r *Repository) Transactions() repository.TransactionRepository { return r.transactions }

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
