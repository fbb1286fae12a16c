package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type userStore struct {
	db DB
}

// CreateUser inserts a user.
func (s *userStore) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (account, pass_hash, created_time, updated_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := s.db.QueryRow(ctx, query, user.Account, user.PasswordHash, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByAccount fetches a user by account name.
func (s *userStore) GetUserByAccount(ctx context.Context, account string) (*domain.User, error) {
	const query = `SELECT id, account, pass_hash, created_time, updated_time FROM users WHERE account = $1`
	var u domain.User
	err := s.db.QueryRow(ctx, query, account).Scan(&u.ID, &u.Account, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}
