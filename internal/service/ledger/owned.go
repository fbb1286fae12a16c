package ledger

import (
	"context"
	"errors"

	"github.com/splax/ledger/internal/apperr"
	"github.com/splax/ledger/internal/repository"
)

// owned applies the ownership and uniqueness error policy shared by tags and
// transactions on top of a repository.Owned.
type owned[T any] struct {
	repo repository.Owned[T]
	name string
	// danglingRef is reported when Create hits a missing referenced row.
	danglingRef string
	// invalidValue is reported when the store rejects a column value.
	invalidValue string
}

func (o owned[T]) list(ctx context.Context, userID int64) ([]T, error) {
	items, err := o.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list "+o.name+"s", err)
	}
	return items, nil
}

func (o owned[T]) create(ctx context.Context, item *T) error {
	err := o.repo.Create(ctx, item)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(o.name + " already exists")
	case errors.Is(err, repository.ErrNotFound) && o.danglingRef != "":
		return apperr.Validation(o.danglingRef)
	case errors.Is(err, repository.ErrInvalidValue) && o.invalidValue != "":
		return apperr.Validation(o.invalidValue)
	default:
		return apperr.Internal("create "+o.name, err)
	}
}

// delete removes the item only if userID owns it. A foreign item and a
// missing one produce the same error.
func (o owned[T]) delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return apperr.NotFound(o.name + " not found")
	}
	err := o.repo.DeleteOwned(ctx, userID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(o.name + " not found")
	default:
		return apperr.Internal("delete "+o.name, err)
	}
}
