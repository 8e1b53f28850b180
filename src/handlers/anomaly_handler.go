package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/services"
)

// AnomalyHandler exposes the AI forensic anomaly scan.
type AnomalyHandler struct {
	anomalyService *services.AnomalyService
}

func NewAnomalyHandler(anomalyService *services.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{anomalyService: anomalyService}
}

type anomalyScanRequest struct {
	ClientBookID string `json:"clientBookId"`
	FromDate     string `json:"fromDate"`
	ToDate       string `json:"toDate"`
}

func parseDateBound(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, err
		}
	}
	t = t.UTC()
	return &t, nil
}

func (h *AnomalyHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req anomalyScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientBookID == "" {
		sendJSONError(w, "clientBookId is required", http.StatusBadRequest)
		return
	}

	from, err := parseDateBound(req.FromDate)
	if err != nil {
		sendJSONError(w, "Invalid fromDate", http.StatusBadRequest)
		return
	}
	to, err := parseDateBound(req.ToDate)
	if err != nil {
		sendJSONError(w, "Invalid toDate", http.StatusBadRequest)
		return
	}

	result, err := h.anomalyService.Scan(r.Context(), req.ClientBookID, from, to)
	if err != nil {
		ctxLogger.Error("Anomaly scan failed", "clientBookID", req.ClientBookID, "error", err)
		sendJSONError(w, "Anomaly scan failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
