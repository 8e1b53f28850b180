package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
	"github.com/username/ledgerlens/backend/src/security/validation"
	"github.com/username/ledgerlens/backend/src/services"
)

const uploadTag = "csv-upload"

// BookHandler manages client books and their transactions.
type BookHandler struct {
	store services.Store
}

func NewBookHandler(store services.Store) *BookHandler {
	return &BookHandler{store: store}
}

type uploadTransactionRow struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"` // DEBIT | CREDIT, inferred from sign if absent
	Reference   string          `json:"reference"`
}

type uploadRequest struct {
	ClientName   string                 `json:"clientName"`
	Currency     string                 `json:"currency"`
	Transactions []uploadTransactionRow `json:"transactions"`
}

// HandleUpload creates a new client book from parsed transaction rows.
// CSV parsing happens client-side; this endpoint receives the rows as JSON.
func (h *BookHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	clientName := validation.SanitizeText(strings.TrimSpace(req.ClientName))
	if clientName == "" {
		sendJSONError(w, "clientName is required", http.StatusBadRequest)
		return
	}
	if len(req.Transactions) == 0 {
		sendJSONError(w, "At least one transaction row is required", http.StatusBadRequest)
		return
	}

	org, err := h.store.GetFirstOrganization(r.Context())
	if err != nil {
		ctxLogger.Error("Failed to look up organization", "error", err)
		sendJSONError(w, "Failed to upload client data", http.StatusInternalServerError)
		return
	}
	if org == nil {
		sendJSONError(w, "No organization found. Seed the database first.", http.StatusBadRequest)
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	book := models.ClientBook{
		ID:             uuid.New().String(),
		Name:           clientName,
		Currency:       currency,
		FiscalYearEnd:  time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		Status:         models.BookActive,
		OrganizationID: org.ID,
		CreatedBy:      uploadTag,
		UpdatedBy:      uploadTag,
	}

	transactions := make([]models.Transaction, 0, len(req.Transactions))
	for _, row := range req.Transactions {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			date, err = time.Parse(time.RFC3339, row.Date)
			if err != nil {
				sendJSONError(w, "Invalid transaction date: "+row.Date, http.StatusBadRequest)
				return
			}
		}

		txType := models.TransactionDebit
		if row.Type != "" {
			if strings.EqualFold(row.Type, string(models.TransactionCredit)) {
				txType = models.TransactionCredit
			}
		} else if !row.Amount.IsNegative() {
			txType = models.TransactionCredit
		}

		transactions = append(transactions, models.Transaction{
			ID:          uuid.New().String(),
			Date:        date,
			Description: validation.SanitizeText(row.Description),
			Amount:      row.Amount.Abs(),
			Type:        txType,
			Reference:   strings.TrimSpace(row.Reference),
			CreatedBy:   uploadTag,
			UpdatedBy:   uploadTag,
		})
	}

	if err := h.store.CreateClientBook(r.Context(), book, transactions); err != nil {
		ctxLogger.Error("Failed to create client book", "error", err)
		sendJSONError(w, "Failed to upload client data", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Client book created from upload", "clientBookID", book.ID, "transactions", len(transactions))
	writeJSON(w, http.StatusOK, map[string]any{
		"clientBook":       book,
		"transactionCount": len(transactions),
	})
}

func (h *BookHandler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.store.ListClientBooks(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list client books", "error", err)
		sendJSONError(w, "Failed to list client books", http.StatusInternalServerError)
		return
	}
	if books == nil {
		books = []models.ClientBook{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	book, err := h.store.GetClientBook(r.Context(), bookID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load client book", "clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to load client book", http.StatusInternalServerError)
		return
	}
	if book == nil {
		sendJSONError(w, "Client book not found", http.StatusNotFound)
		return
	}

	transactions, err := h.store.ListTransactions(r.Context(), bookID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list transactions", "clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (h *BookHandler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	ctxLogger := logger.FromContext(r.Context())

	if err := h.store.DeleteClientBook(r.Context(), bookID); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			sendJSONError(w, "Client book not found", http.StatusNotFound)
			return
		}
		ctxLogger.Error("Failed to delete client book", "clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to delete client book", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Client book deleted", "clientBookID", bookID)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
