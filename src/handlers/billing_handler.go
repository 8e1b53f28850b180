package handlers

import (
	"net/http"

	"github.com/username/ledgerlens/backend/src/billing"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/services"
)

// BillingHandler exposes the Stripe billing portal.
type BillingHandler struct {
	store          services.Store
	billingService *billing.Service
	returnURL      string
}

func NewBillingHandler(store services.Store, billingService *billing.Service, returnURL string) *BillingHandler {
	return &BillingHandler{
		store:          store,
		billingService: billingService,
		returnURL:      returnURL,
	}
}

// HandleCreatePortalSession opens a Stripe billing-portal session for
// the organization and returns the portal URL.
func (h *BillingHandler) HandleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	org, err := h.store.GetFirstOrganization(r.Context())
	if err != nil {
		ctxLogger.Error("Failed to look up organization", "error", err)
		sendJSONError(w, "Failed to open billing portal", http.StatusInternalServerError)
		return
	}
	if org == nil || org.StripeCustomerID == "" {
		sendJSONError(w, "No billing customer configured", http.StatusBadRequest)
		return
	}

	portalURL, err := h.billingService.CreatePortalSession(org.StripeCustomerID, h.returnURL)
	if err != nil {
		ctxLogger.Error("Failed to create billing portal session",
			"stripeCustomerID", org.StripeCustomerID, "error", err)
		sendJSONError(w, "Failed to open billing portal", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": portalURL})
}
