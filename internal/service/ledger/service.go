package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splax/ledger/internal/apperr"
	"github.com/splax/ledger/internal/domain"
	"github.com/splax/ledger/internal/repository"
	"github.com/splax/ledger/internal/validation"
)

// Service implements the ledger operations for an authenticated user.
type Service struct {
	tags     repository.TagRepository
	txns     repository.TransactionRepository
	tagOps   owned[domain.Tag]
	txnOps   owned[domain.Transaction]
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(tags repository.TagRepository, txns repository.TransactionRepository, logger *slog.Logger, opts ...Option) Service {
	s := Service{
		tags:     tags,
		txns:     txns,
		tagOps:   owned[domain.Tag]{repo: tags, name: "tag"},
		txnOps:   owned[domain.Transaction]{repo: txns, name: "transaction", danglingRef: "invalid tag", invalidValue: "invalid pay amount"},
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type tagInput struct {
	Name string `json:"name" validate:"required,max=64"`
}

// AddTag creates a tag owned by userID.
func (s Service) AddTag(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	in := tagInput{Name: strings.TrimSpace(name)}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	tag := &domain.Tag{UserID: userID, Name: in.Name, CreatedAt: now, UpdatedAt: now}
	if err := s.tagOps.create(ctx, tag); err != nil {
		return nil, err
	}
	s.logger.Info("tag added", "user_id", userID, "tag_id", tag.ID)
	return tag, nil
}

// ListTags returns the tags owned by userID.
func (s Service) ListTags(ctx context.Context, userID int64) ([]domain.Tag, error) {
	return s.tagOps.list(ctx, userID)
}

// DeleteTag removes a tag owned by userID. Transactions referencing it keep
// their data and lose the tag reference.
func (s Service) DeleteTag(ctx context.Context, userID, tagID int64) error {
	if err := s.tagOps.delete(ctx, userID, tagID); err != nil {
		return err
	}
	s.logger.Info("tag deleted", "user_id", userID, "tag_id", tagID)
	return nil
}

// TransactionInput carries the raw fields of a new transaction.
type TransactionInput struct {
	Pay             string `json:"pay" validate:"required"`
	PayMethod       string `json:"pay_method" validate:"max=32"`
	Comment         string `json:"comment" validate:"max=255"`
	TransactionDate string `json:"transaction_date" validate:"required"`
	TagID           int64  `json:"tag_id"`
}

// AddTransaction validates in and records it for userID.
func (s Service) AddTransaction(ctx context.Context, userID int64, in TransactionInput) (*domain.Transaction, error) {
	in.Pay = strings.TrimSpace(in.Pay)
	in.PayMethod = strings.TrimSpace(in.PayMethod)
	in.TransactionDate = strings.TrimSpace(in.TransactionDate)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	amount, err := ParseAmount(in.Pay)
	if err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(in.TransactionDate)
	if err != nil {
		return nil, apperr.Validation("invalid transaction date")
	}
	if in.TagID <= 0 {
		return nil, apperr.Validation("invalid tag")
	}
	if _, err := s.tags.FindOwned(ctx, userID, in.TagID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("invalid tag")
		}
		return nil, apperr.Internal("find tag", err)
	}

	now := s.now().UTC()
	tagID := in.TagID
	txn := &domain.Transaction{
		UserID:          userID,
		TagID:           &tagID,
		Pay:             amount.StringFixed(amountScale),
		PayMethod:       in.PayMethod,
		Comment:         in.Comment,
		TransactionDate: date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.txnOps.create(ctx, txn); err != nil {
		return nil, err
	}
	s.logger.Info("transaction added", "user_id", userID, "transaction_id", txn.ID)
	return txn, nil
}

// DeleteTransaction removes a transaction owned by userID.
func (s Service) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.txnOps.delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("transaction deleted", "user_id", userID, "transaction_id", id)
	return nil
}

const (
	// amountScale is the number of fractional digits accepted and stored.
	amountScale = 2
	// amountIntDigits is the number of integer digits NUMERIC(14,2) holds.
	amountIntDigits = 12
)

var amountLimit = decimal.New(1, amountIntDigits)

// ParseAmount parses a monetary amount with at most two fractional digits
// whose absolute value is below 10^12.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.Equal(amount.Round(amountScale)) || amount.Abs().GreaterThanOrEqual(amountLimit) {
		return decimal.Decimal{}, apperr.Validation("invalid pay amount")
	}
	return amount, nil
}
