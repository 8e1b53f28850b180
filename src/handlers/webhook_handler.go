package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/retry"
	"github.com/username/ledgerlens/backend/src/services"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives Codat and Stripe webhook deliveries. Both
// endpoints are unauthenticated; signature verification is the only
// gate, and it runs before any side effect.
type WebhookHandler struct {
	store               services.Store
	syncService         *services.SyncService
	codatWebhookSecret  string
	stripeWebhookSecret string
}

func NewWebhookHandler(store services.Store, syncService *services.SyncService, codatWebhookSecret, stripeWebhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		store:               store,
		syncService:         syncService,
		codatWebhookSecret:  codatWebhookSecret,
		stripeWebhookSecret: stripeWebhookSecret,
	}
}

// HandleCodatWebhook verifies and dispatches a Codat delivery. Data-read
// completions trigger a transaction sync with retry; every other event
// type is acknowledged and ignored so Codat does not redeliver it.
func (h *WebhookHandler) HandleCodatWebhook(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		sendJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := codat.VerifyWebhook(h.codatWebhookSecret, payload, r.Header)
	if err != nil {
		ctxLogger.Warn("Rejected codat webhook", "error", err)
		sendJSONError(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	switch event.Type {
	case "read.completed", "read.completed.initial":
		result, err := retry.WithRetry(r.Context(), func(ctx context.Context) (*services.SyncResult, error) {
			return h.syncService.SyncTransactions(ctx, event.CompanyID, event.ConnectionID)
		}, retry.Options{})
		if err != nil {
			ctxLogger.Error("Connector sync failed after retries",
				"codatCompanyID", event.CompanyID, "codatConnectionID", event.ConnectionID, "error", err)
			sendJSONError(w, "Sync failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		ctxLogger.Info("Ignoring unhandled codat webhook event", "type", event.Type)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// HandleStripeWebhook verifies and dispatches a Stripe delivery.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		sendJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.stripeWebhookSecret)
	if err != nil {
		ctxLogger.Warn("Rejected stripe webhook", "error", err)
		sendJSONError(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.created":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			sendJSONError(w, "Invalid subscription payload", http.StatusBadRequest)
			return
		}
		if subscription.Customer == nil {
			sendJSONError(w, "Subscription event has no customer", http.StatusBadRequest)
			return
		}
		priceID := ""
		if subscription.Items != nil && len(subscription.Items.Data) > 0 && subscription.Items.Data[0].Price != nil {
			priceID = subscription.Items.Data[0].Price.ID
		}
		if err := h.store.UpdateOrganizationSubscription(r.Context(), subscription.Customer.ID, subscription.ID, priceID); err != nil {
			ctxLogger.Error("Failed to update organization subscription",
				"stripeCustomerID", subscription.Customer.ID, "error", err)
			sendJSONError(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			sendJSONError(w, "Invalid invoice payload", http.StatusBadRequest)
			return
		}
		if invoice.Customer != nil {
			if err := h.store.TouchOrganization(r.Context(), invoice.Customer.ID, "stripe-webhook"); err != nil {
				ctxLogger.Error("Failed to record invoice payment",
					"stripeCustomerID", invoice.Customer.ID, "error", err)
				sendJSONError(w, "Failed to process event", http.StatusInternalServerError)
				return
			}
		}
	default:
		ctxLogger.Info("Ignoring unhandled stripe webhook event", "type", string(event.Type))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
