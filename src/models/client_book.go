package models

import "time"

// ClientBookStatus is the lifecycle state of a client's bookkeeping scope.
type ClientBookStatus string

const (
	BookActive      ClientBookStatus = "ACTIVE"
	BookUnderReview ClientBookStatus = "UNDER_REVIEW"
	BookArchived    ClientBookStatus = "ARCHIVED"
)

// ClientBook is one client's bookkeeping scope. It owns transactions,
// anomaly flags, tax deductions and month-end reports; deleting a book
// cascades to all of them. At most one book may be linked to a given
// Codat connection.
type ClientBook struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Currency          string           `json:"currency"`
	FiscalYearEnd     time.Time        `json:"fiscalYearEnd"`
	Status            ClientBookStatus `json:"status"`
	CodatCompanyID    string           `json:"codatCompanyId,omitempty"`
	CodatConnectionID string           `json:"codatConnectionId,omitempty"`
	OrganizationID    string           `json:"organizationId"`
	CreatedAt         time.Time        `json:"createdAt"`
	CreatedBy         string           `json:"createdBy,omitempty"`
	UpdatedBy         string           `json:"updatedBy,omitempty"`
}

// Organization is the tenant that owns client books and carries the
// Stripe billing identity.
type Organization struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	StripeCustomerID     string    `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string    `json:"stripeSubscriptionId,omitempty"`
	StripePriceID        string    `json:"stripePriceId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedBy            string    `json:"updatedBy,omitempty"`
}
