package domain

import "time"

// Transaction is a dated ledger entry owned by a single user.
//
// Pay holds the amount exactly as persisted. It is validated on write but
// read back as text so rows that fail to parse can still be listed.
// TagID is nil once the referenced tag has been deleted.
type Transaction struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TagID           *int64    `json:"tag_id"`
	Pay             string    `json:"pay"`
	PayMethod       string    `json:"pay_method"`
	Comment         string    `json:"comment"`
	TransactionDate Date      `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_time"`
	UpdatedAt       time.Time `json:"updated_time"`
}

// TransactionView is a Transaction with its tag name resolved.
type TransactionView struct {
	Transaction
	TagName *string `json:"tag_name"`
}
