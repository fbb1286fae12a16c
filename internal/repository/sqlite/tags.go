package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type tagStore struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (domain.Tag, error) {
	var (
		tag              domain.Tag
		created, updated string
	)
	if err := row.Scan(&tag.ID, &tag.UserID, &tag.Name, &created, &updated); err != nil {
		return domain.Tag{}, err
	}
	var err error
	if tag.CreatedAt, err = parseTime(created); err != nil {
		return domain.Tag{}, err
	}
	if tag.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

// ListByOwner returns the user's tags ordered by name.
func (s *tagStore) ListByOwner(ctx context.Context, userID int64) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_time, updated_time FROM tags WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Create inserts a tag.
func (s *tagStore) Create(ctx context.Context, tag *domain.Tag) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (user_id, name, created_time, updated_time) VALUES (?, ?, ?, ?)`,
		tag.UserID, tag.Name, formatTime(tag.CreatedAt), formatTime(tag.UpdatedAt))
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("tag id: %w", err)
	}
	tag.ID = id
	return nil
}

// DeleteOwned removes a tag owned by userID.
func (s *tagStore) DeleteOwned(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireAffected(res)
}

// FindOwned fetches a tag owned by userID.
func (s *tagStore) FindOwned(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_time, updated_time FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select tag: %w", err)
	}
	return &tag, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
