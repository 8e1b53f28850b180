package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"  // money out
	TransactionCredit TransactionType = "CREDIT" // money in
)

// Transaction is a single bookkeeping entry scoped to a client book.
// Rows are immutable once recorded except for category assignment and
// re-sync of the same external reference.
type Transaction struct {
	ID           string          `json:"id"`
	ClientBookID string          `json:"clientBookId"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"` // non-negative magnitude
	Type         TransactionType `json:"type"`
	Reference    string          `json:"reference,omitempty"` // sync idempotency key, unique per book
	CategoryID   string          `json:"categoryId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	CreatedBy    string          `json:"createdBy,omitempty"`
	UpdatedBy    string          `json:"updatedBy,omitempty"`
}
