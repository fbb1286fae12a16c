package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type transactionStore struct {
	db DB
}

const transactionSelect = `SELECT t.id, t.user_id, t.tag_id, t.pay::text, t.pay_method, t.comment,
		t.transaction_date, t.created_time, t.updated_time, g.name
	FROM transactions t
	LEFT JOIN tags g ON g.id = t.tag_id AND g.user_id = t.user_id`

// ListByOwner returns all of the user's transactions.
func (s *transactionStore) ListByOwner(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	const query = transactionSelect + `
	WHERE t.user_id = $1
	ORDER BY t.transaction_date, t.id`
	views, err := s.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(views))
	for _, v := range views {
		out = append(out, v.Transaction)
	}
	return out, nil
}

// ListInRange returns the user's transactions dated within [begin, end].
func (s *transactionStore) ListInRange(ctx context.Context, userID int64, begin, end domain.Date) ([]domain.TransactionView, error) {
	const query = transactionSelect + `
	WHERE t.user_id = $1
		AND t.transaction_date >= $2::date
		AND t.transaction_date <= $3::date
	ORDER BY t.transaction_date, t.id`
	return s.query(ctx, query, userID, begin.String(), end.String())
}

// Create inserts a transaction.
func (s *transactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	const query = `INSERT INTO transactions
		(user_id, tag_id, pay, pay_method, comment, transaction_date, created_time, updated_time)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::date, $7, $8)
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		txn.UserID, txn.TagID, txn.Pay, txn.PayMethod, txn.Comment,
		txn.TransactionDate.String(), txn.CreatedAt, txn.UpdatedAt,
	).Scan(&txn.ID)
	if err != nil {
		switch {
		case hasCode(err, codeForeignKeyViolation):
			return repository.ErrNotFound
		case hasCode(err, codeNumericOutOfRange):
			return fmt.Errorf("insert transaction: %w", repository.ErrInvalidValue)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// DeleteOwned removes a transaction owned by userID.
func (s *transactionStore) DeleteOwned(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *transactionStore) query(ctx context.Context, query string, args ...any) ([]domain.TransactionView, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	views := make([]domain.TransactionView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return views, nil
}

func scanView(rows pgx.Rows) (domain.TransactionView, error) {
	var (
		v    domain.TransactionView
		date time.Time
	)
	err := rows.Scan(&v.ID, &v.UserID, &v.TagID, &v.Pay, &v.PayMethod, &v.Comment,
		&date, &v.CreatedAt, &v.UpdatedAt, &v.TagName)
	if err != nil {
		return domain.TransactionView{}, fmt.Errorf("scan transaction: %w", err)
	}
	v.TransactionDate = domain.DateOf(date)
	return v, nil
}
