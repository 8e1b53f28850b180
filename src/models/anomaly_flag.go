package models

import "time"

// AnomalySeverity grades how suspicious a flagged transaction is.
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "LOW"
	SeverityMedium   AnomalySeverity = "MEDIUM"
	SeverityHigh     AnomalySeverity = "HIGH"
	SeverityCritical AnomalySeverity = "CRITICAL"
)

// ValidSeverity reports whether s is one of the known severity values.
func ValidSeverity(s AnomalySeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AnomalyFlag is a persisted suspicion record pointing at a transaction
// (or at a client book generally). Only a human resolving it mutates it.
type AnomalyFlag struct {
	ID            string          `json:"id"`
	Severity      AnomalySeverity `json:"severity"`
	Message       string          `json:"message"`
	Reasoning     string          `json:"reasoning,omitempty"`
	Confidence    float64         `json:"confidence,omitempty"` // 0..1, zero when not AI-scored
	Resolved      bool            `json:"resolved"`
	ClientBookID  string          `json:"clientBookId"`
	TransactionID string          `json:"transactionId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	UpdatedBy     string          `json:"updatedBy,omitempty"`
}
