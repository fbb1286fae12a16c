package repository

import (
	"context"

	"github.com/splax/ledger/internal/domain"
)

// UserRepository persists user accounts and their password hashes.
type UserRepository interface {
	// CreateUser inserts user and sets its ID. Duplicate accounts yield ErrConflict.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByAccount(ctx context.Context, account string) (*domain.User, error)
}

// Owned is the capability set shared by resources that belong to one user.
type Owned[T any] interface {
	// ListByOwner returns every item owned by userID.
	ListByOwner(ctx context.Context, userID int64) ([]T, error)
	// Create inserts item and sets its ID.
	Create(ctx context.Context, item *T) error
	// DeleteOwned removes the item only when it is owned by userID,
	// returning ErrNotFound otherwise.
	DeleteOwned(ctx context.Context, userID, id int64) error
}

// TagRepository persists tags. Duplicate (user, name) pairs yield ErrConflict on Create.
type TagRepository interface {
	Owned[domain.Tag]
	// FindOwned returns the tag only when it is owned by userID.
	FindOwned(ctx context.Context, userID, id int64) (*domain.Tag, error)
}

// TransactionRepository persists transactions.
type TransactionRepository interface {
	Owned[domain.Transaction]
	// ListInRange returns userID's transactions dated within [begin, end],
	// each joined with its tag name, ordered by date then id.
	ListInRange(ctx context.Context, userID int64, begin, end domain.Date) ([]domain.TransactionView, error)
}

// Ledger groups the repositories backing one store.
type Ledger interface {
	Users() UserRepository
	Tags() TagRepository
	Transactions() TransactionRepository
	Ping(ctx context.Context) error
	Close() error
}
