package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/splax/ledger/internal/apperr"
	"github.com/splax/ledger/internal/domain"
)

// Statement is the result of a date-window query.
type Statement struct {
	List []domain.TransactionView `json:"list"`
	// PayAmount is the exact sum of the listed amounts, or nil when no
	// transaction was selected.
	PayAmount *string `json:"pay_amount"`
	// Skipped lists transactions whose stored amount could not be parsed
	// and was left out of PayAmount.
	Skipped []int64 `json:"-"`
}

// ListTransactions returns userID's transactions dated within the closed
// window [begin, end] together with their exact total.
func (s Service) ListTransactions(ctx context.Context, userID int64, begin, end string) (*Statement, error) {
	from, err := parseBound("begin", begin)
	if err != nil {
		return nil, err
	}
	to, err := parseBound("end", end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, apperr.Validation("invalid date range")
	}

	views, err := s.txns.ListInRange(ctx, userID, from, to)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	st := summarize(views)
	if len(st.Skipped) > 0 {
		s.logger.Warn("unparsable amounts excluded from total",
			"user_id", userID, "transaction_ids", st.Skipped)
	}
	return st, nil
}

func parseBound(name, raw string) (domain.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Date{}, apperr.Validation(name + " date is required")
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, apperr.Validation("invalid " + name + " date")
	}
	return d, nil
}

// summarize sums the amounts of views exactly. The total keeps the widest
// fractional scale seen, so "12.50" sums to "12.50" rather than "12.5".
func summarize(views []domain.TransactionView) *Statement {
	st := &Statement{List: views}
	if st.List == nil {
		st.List = make([]domain.TransactionView, 0)
	}
	if len(views) == 0 {
		return st
	}
	total := decimal.Zero
	var scale int32
	for _, v := range views {
		amount, err := decimal.NewFromString(strings.TrimSpace(v.Pay))
		if err != nil {
			st.Skipped = append(st.Skipped, v.ID)
			continue
		}
		if exp := -amount.Exponent(); exp > scale {
			scale = exp
		}
		total = total.Add(amount)
	}
	formatted := total.StringFixed(scale)
	st.PayAmount = &formatted
	return st
}
