package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/services"
)

// CategorizeHandler exposes the AI categorization batch runner.
type CategorizeHandler struct {
	categorizationService *services.CategorizationService
}

func NewCategorizeHandler(categorizationService *services.CategorizationService) *CategorizeHandler {
	return &CategorizeHandler{categorizationService: categorizationService}
}

type categorizeRequest struct {
	ClientBookID string `json:"clientBookId"`
	DryRun       bool   `json:"dryRun"`
}

// HandleRunBatch runs the categorization batch. Per-chunk and per-item
// failures surface in the counts with a 200; only the empty-catalog
// precondition, an escaped invalid-category error, and unexpected
// failures map to non-2xx statuses.
func (h *CategorizeHandler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	// An empty body means "all books, live run".
	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.categorizationService.RunBatch(r.Context(), req.ClientBookID, req.DryRun)
	if err != nil {
		var invalidCategory *ai.InvalidCategoryError
		switch {
		case errors.Is(err, services.ErrNoCategories):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &invalidCategory):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":           invalidCategory.Error(),
				"code":            "INVALID_CATEGORY",
				"invalidMappings": invalidCategory.InvalidMappings,
			})
		default:
			ctxLogger.Error("Categorization batch failed", "error", err)
			sendJSONError(w, "Categorization failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
