// Package billing wraps the Stripe client used for subscription
// management. The client is constructed once and passed explicitly so
// tests can substitute a double.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Service holds the Stripe API client.
type Service struct {
	api *client.API
}

// NewService constructs the Stripe client once at startup.
func NewService(secretKey string) *Service {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Service{api: api}
}

// CreatePortalSession opens a Stripe billing-portal session for the
// given customer and returns the portal URL.
func (s *Service) CreatePortalSession(customerID, returnURL string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("organization has no billing customer")
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("creating billing portal session: %w", err)
	}
	return session.URL, nil
}
