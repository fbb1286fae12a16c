package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type tagStore struct {
	db DB
}

const tagColumns = `id, user_id, name, created_time, updated_time`

// ListByOwner returns the user's tags ordered by name.
func (s *tagStore) ListByOwner(ctx context.Context, userID int64) ([]domain.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE user_id = $1 ORDER BY name, id`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Create inserts a tag.
func (s *tagStore) Create(ctx context.Context, tag *domain.Tag) error {
	const query = `INSERT INTO tags (user_id, name, created_time, updated_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := s.db.QueryRow(ctx, query, tag.UserID, tag.Name, tag.CreatedAt, tag.UpdatedAt).Scan(&tag.ID)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// DeleteOwned removes a tag owned by userID.
func (s *tagStore) DeleteOwned(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM tags WHERE id = $1 AND user_id = $2`
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindOwned fetches a tag owned by userID.
func (s *tagStore) FindOwned(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	const query = `SELECT ` + tagColumns + ` FROM tags WHERE id = $1 AND user_id = $2`
	var tag domain.Tag
	err := s.db.QueryRow(ctx, query, id, userID).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select tag: %w", err)
	}
	return &tag, nil
}
