package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxDeduction is a deduction line for a client book and tax year.
// Auto-generated rows carry a fixed creator tag and are deleted and
// replaced wholesale on each regeneration run.
type TaxDeduction struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	TaxYear      int             `json:"taxYear"`
	Eligible     bool            `json:"eligible"`
	ClientBookID string          `json:"clientBookId"`
	CreatedAt    time.Time       `json:"createdAt"`
	CreatedBy    string          `json:"createdBy,omitempty"`
	UpdatedBy    string          `json:"updatedBy,omitempty"`
}
