package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
)

type transactionStore struct {
	db *sql.DB
}

const transactionSelect = `SELECT t.id, t.user_id, t.tag_id, t.pay, t.pay_method, t.comment,
		t.transaction_date, t.created_time, t.updated_time, g.name
	FROM transactions t
	LEFT JOIN tags g ON g.id = t.tag_id AND g.user_id = t.user_id`

// ListByOwner returns all of the user's transactions.
func (s *transactionStore) ListByOwner(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	views, err := s.query(ctx, transactionSelect+`
	WHERE t.user_id = ?
	ORDER BY t.transaction_date, t.id`, userID)
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
// Dates are stored as YYYY-MM-DD so text comparison orders them correctly.
func (s *transactionStore) ListInRange(ctx context.Context, userID int64, begin, end domain.Date) ([]domain.TransactionView, error) {
	return s.query(ctx, transactionSelect+`
	WHERE t.user_id = ?
		AND t.transaction_date >= ?
		AND t.transaction_date <= ?
	ORDER BY t.transaction_date, t.id`, userID, begin.String(), end.String())
}

// Create inserts a transaction.
func (s *transactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	var tagID sql.NullInt64
	if txn.TagID != nil {
		tagID = sql.NullInt64{Int64: *txn.TagID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(user_id, tag_id, pay, pay_method, comment, transaction_date, created_time, updated_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.UserID, tagID, txn.Pay, txn.PayMethod, txn.Comment,
		txn.TransactionDate.String(), formatTime(txn.CreatedAt), formatTime(txn.UpdatedAt))
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	txn.ID = id
	return nil
}

// DeleteOwned removes a transaction owned by userID.
func (s *transactionStore) DeleteOwned(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func (s *transactionStore) query(ctx context.Context, query string, args ...any) ([]domain.TransactionView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	views := make([]domain.TransactionView, 0)
	for rows.Next() {
		var (
			v                      domain.TransactionView
			tagID                  sql.NullInt64
			tagName                sql.NullString
			date, created, updated string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &tagID, &v.Pay, &v.PayMethod, &v.Comment,
			&date, &created, &updated, &tagName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tagID.Valid {
			id := tagID.Int64
			v.TagID = &id
		}
		if tagName.Valid {
			name := tagName.String
			v.TagName = &name
		}
		if v.TransactionDate, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan transaction %d: %w", v.ID, err)
		}
		if v.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if v.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return views, nil
}
