package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/services"
)

// CodatHandler links client books to the Codat accounting connector.
type CodatHandler struct {
	store       services.Store
	codatClient *codat.Client
}

func NewCodatHandler(store services.Store, codatClient *codat.Client) *CodatHandler {
	return &CodatHandler{store: store, codatClient: codatClient}
}

type connectRequest struct {
	ClientBookID string `json:"clientBookId"`
	CompanyName  string `json:"companyName"`
}

// HandleConnect registers a Codat company and connection for a client
// book and returns the Link URL the client uses to authorize their
// accounting platform.
func (h *CodatHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientBookID == "" {
		sendJSONError(w, "clientBookId is required", http.StatusBadRequest)
		return
	}

	book, err := h.store.GetClientBook(r.Context(), req.ClientBookID)
	if err != nil {
		ctxLogger.Error("Failed to load client book", "clientBookID", req.ClientBookID, "error", err)
		sendJSONError(w, "Failed to connect client book", http.StatusInternalServerError)
		return
	}
	if book == nil {
		sendJSONError(w, "Client book not found", http.StatusNotFound)
		return
	}
	if book.CodatConnectionID != "" {
		sendJSONError(w, "Client book is already connected", http.StatusConflict)
		return
	}

	companyName := req.CompanyName
	if companyName == "" {
		companyName = book.Name
	}

	company, err := h.codatClient.CreateCompany(r.Context(), companyName)
	if err != nil {
		ctxLogger.Error("Failed to create Codat company", "clientBookID", book.ID, "error", err)
		sendJSONError(w, "Failed to register company with connector", http.StatusBadGateway)
		return
	}

	connection, err := h.codatClient.CreateConnection(r.Context(), company.ID)
	if err != nil {
		ctxLogger.Error("Failed to create Codat connection",
			"clientBookID", book.ID, "codatCompanyID", company.ID, "error", err)
		sendJSONError(w, "Failed to create connector connection", http.StatusBadGateway)
		return
	}

	if err := h.store.SetClientBookConnection(r.Context(), book.ID, company.ID, connection.ID); err != nil {
		ctxLogger.Error("Failed to persist connector link",
			"clientBookID", book.ID, "codatConnectionID", connection.ID, "error", err)
		sendJSONError(w, "Failed to connect client book", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("Client book linked to connector",
		"clientBookID", book.ID, "codatCompanyID", company.ID, "codatConnectionID", connection.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"companyId":    company.ID,
		"connectionId": connection.ID,
		"linkUrl":      connection.LinkURL,
	})
}
