package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/services"
)

// ReportHandler exposes P&L summaries, month-end reports and tax
// deduction generation for a client book.
type ReportHandler struct {
	reportService *services.ReportService
	taxService    *services.TaxService
}

func NewReportHandler(reportService *services.ReportService, taxService *services.TaxService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		taxService:    taxService,
	}
}

// parsePeriod reads year and month query params, defaulting to the
// current UTC month when both are absent.
func parsePeriod(r *http.Request) (int, int, error) {
	yearParam := r.URL.Query().Get("year")
	monthParam := r.URL.Query().Get("month")

	if yearParam == "" && monthParam == "" {
		now := time.Now().UTC()
		return now.Year(), int(now.Month()), nil
	}

	year, err := strconv.Atoi(yearParam)
	if err != nil || year < 1900 || year > 9999 {
		return 0, 0, errors.New("invalid year")
	}
	month, err := strconv.Atoi(monthParam)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("invalid month")
	}
	return year, month, nil
}

func (h *ReportHandler) HandleGetPnl(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	year, month, err := parsePeriod(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.reportService.GetPnlSummary(r.Context(), bookID, year, month)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			sendJSONError(w, "Client book not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to compute P&L summary",
			"clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to compute P&L summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type generateReportRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	ctxLogger := logger.FromContext(r.Context())

	// An empty body means "current UTC month".
	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	year, month := req.Year, req.Month
	if year == 0 && month == 0 {
		now := time.Now().UTC()
		year, month = now.Year(), int(now.Month())
	}
	if year < 1900 || year > 9999 || month < 1 || month > 12 {
		sendJSONError(w, "invalid year or month", http.StatusBadRequest)
		return
	}

	report, err := h.reportService.GenerateMonthEndReport(r.Context(), bookID, year, month)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			sendJSONError(w, "Client book not found", http.StatusNotFound)
			return
		}
		ctxLogger.Error("Failed to generate month-end report", "clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to generate month-end report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportHandler) HandleGenerateTaxDeductions(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	ctxLogger := logger.FromContext(r.Context())

	summary, err := h.taxService.GenerateDeductions(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			sendJSONError(w, "Client book not found", http.StatusNotFound)
			return
		}
		ctxLogger.Error("Failed to generate tax deductions", "clientBookID", bookID, "error", err)
		sendJSONError(w, "Failed to generate tax deductions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
