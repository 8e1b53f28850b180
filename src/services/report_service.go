package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
	"github.com/username/ledgerlens/backend/src/processors"
)

// Cache policy for computed P&L summaries.
const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// ReportService computes P&L summaries and persists month-end report
// snapshots. PDF rendering is handled by an external collaborator; this
// service stops at the summary and the persisted snapshot row.
type ReportService struct {
	store Store
	cache *cache.Cache
}

func NewReportService(store Store, summaryCache *cache.Cache) *ReportService {
	return &ReportService{store: store, cache: summaryCache}
}

func summaryCacheKey(clientBookID string, year, month int) string {
	return fmt.Sprintf("pnl:%s:%04d-%02d", clientBookID, year, month)
}

// GetPnlSummary computes (or serves from cache) the P&L summary of one
// book for one UTC calendar month.
func (s *ReportService) GetPnlSummary(ctx context.Context, clientBookID string, year, month int) (*processors.PnlSummary, error) {
	key := summaryCacheKey(clientBookID, year, month)
	if cached, found := s.cache.Get(key); found {
		if summary, ok := cached.(*processors.PnlSummary); ok {
			return summary, nil
		}
	}

	book, err := s.store.GetClientBook(ctx, clientBookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	org, err := s.store.GetOrganization(ctx, book.OrganizationID)
	if err != nil {
		return nil, err
	}
	orgName := ""
	if org != nil {
		orgName = org.Name
	}

	periodStart, periodEnd := processors.MonthBounds(year, month)
	transactions, err := s.store.ListTransactionsByDateRange(ctx, clientBookID, &periodStart, &periodEnd)
	if err != nil {
		return nil, fmt.Errorf("loading transactions for period: %w", err)
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	categoryByID := make(map[string]models.Category, len(categories))
	for _, cat := range categories {
		categoryByID[cat.ID] = cat
	}

	summary := processors.SummarizePnl(*book, orgName, transactions, categoryByID, periodStart, periodEnd)
	s.cache.Set(key, &summary, DefaultCacheExpiration)
	return &summary, nil
}

// GenerateMonthEndReport computes the month's P&L and persists an
// immutable snapshot row. A re-run creates a new row; it never updates
// an old one.
func (s *ReportService) GenerateMonthEndReport(ctx context.Context, clientBookID string, year, month int) (*models.MonthEndReport, error) {
	summary, err := s.GetPnlSummary(ctx, clientBookID, year, month)
	if err != nil {
		return nil, err
	}

	monthName := summary.PeriodStart.UTC().Format("January")
	report := models.MonthEndReport{
		ID:           uuid.New().String(),
		Title:        fmt.Sprintf("%s %d P&L — %s", monthName, year, summary.ClientBookName),
		Period:       fmt.Sprintf("%04d-%02d", year, month),
		Status:       "FINALIZED",
		Revenue:      summary.TotalRevenue,
		Expenses:     summary.TotalExpenses,
		NetIncome:    summary.NetIncome,
		ClientBookID: clientBookID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateMonthEndReport(ctx, report); err != nil {
		return nil, fmt.Errorf("saving month-end report: %w", err)
	}

	logger.FromContext(ctx).Info("Month-end report generated",
		"clientBookID", clientBookID, "period", report.Period,
		"netIncome", report.NetIncome.String())
	return &report, nil
}
