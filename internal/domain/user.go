package domain

import "time"

// User represents a ledger account.
type User struct {
	ID           int64
	Account      string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
