package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type userStore struct {
	db *sql.DB
}

// CreateUser inserts a user.
func (s *userStore) CreateUser(ctx context.Context, user *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (account, pass_hash, created_time, updated_time) VALUES (?, ?, ?, ?)`,
		user.Account, user.PasswordHash, formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByAccount fetches a user by account name.
func (s *userStore) GetUserByAccount(ctx context.Context, account string) (*domain.User, error) {
	var (
		u                domain.User
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account, pass_hash, created_time, updated_time FROM users WHERE account = ?`, account,
	).Scan(&u.ID, &u.Account, &u.PasswordHash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}
