package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthEndReport is the persisted snapshot of a generated P&L report.
// Immutable once created; a re-run inserts a new row.
type MonthEndReport struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Period       string          `json:"period"` // YYYY-MM
	Status       string          `json:"status"`
	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	NetIncome    decimal.Decimal `json:"netIncome"`
	ClientBookID string          `json:"clientBookId"`
	CreatedAt    time.Time       `json:"createdAt"`
}
