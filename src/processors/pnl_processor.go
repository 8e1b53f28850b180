package processors

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/ledgerlens/backend/src/models"
)

// PnlLineItem is one category total in a P&L summary.
type PnlLineItem struct {
	CategoryID   string          `json:"categoryId,omitempty"` // empty for uncategorized
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
}

// PnlSummary is the profit-and-loss aggregation of one client book over
// one UTC calendar month.
type PnlSummary struct {
	ClientBookID     string          `json:"clientBookId"`
	ClientBookName   string          `json:"clientBookName"`
	OrganizationName string          `json:"organizationName"`
	Currency         string          `json:"currency"`
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Revenue          []PnlLineItem   `json:"revenue"`
	Expenses         []PnlLineItem   `json:"expenses"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	NetIncome        decimal.Decimal `json:"netIncome"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// MonthBounds returns the inclusive UTC boundaries of a calendar month.
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// SummarizePnl aggregates transactions by category and direction:
// CREDIT totals become revenue lines, DEBIT totals become expense lines.
// Amounts accumulate as exact decimals; rounding to cents happens only
// when line items and totals are emitted. Line items are sorted by total
// descending. Pure function: no storage access, no model calls.
func SummarizePnl(book models.ClientBook, organizationName string, transactions []models.Transaction, categories map[string]models.Category, periodStart, periodEnd time.Time) PnlSummary {
	type bucket struct {
		name  string
		total decimal.Decimal
	}

	revenueMap := make(map[string]*bucket)
	expenseMap := make(map[string]*bucket)

	for _, tx := range transactions {
		catID := tx.CategoryID
		catName := "Uncategorized"
		if cat, ok := categories[catID]; ok && catID != "" {
			catName = cat.Name
		} else {
			catID = ""
		}

		target := expenseMap
		if tx.Type == models.TransactionCredit {
			target = revenueMap
		}

		if existing, ok := target[catID]; ok {
			existing.total = existing.total.Add(tx.Amount)
		} else {
			target[catID] = &bucket{name: catName, total: tx.Amount}
		}
	}

	toLineItems := func(m map[string]*bucket) []PnlLineItem {
		items := make([]PnlLineItem, 0, len(m))
		for id, b := range m {
			items = append(items, PnlLineItem{
				CategoryID:   id,
				CategoryName: b.name,
				Total:        b.total.Round(2),
			})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].Total.GreaterThan(items[j].Total)
		})
		return items
	}

	revenue := toLineItems(revenueMap)
	expenses := toLineItems(expenseMap)

	totalRevenue := decimal.Zero
	for _, r := range revenue {
		totalRevenue = totalRevenue.Add(r.Total)
	}
	totalExpenses := decimal.Zero
	for _, e := range expenses {
		totalExpenses = totalExpenses.Add(e.Total)
	}

	return PnlSummary{
		ClientBookID:     book.ID,
		ClientBookName:   book.Name,
		OrganizationName: organizationName,
		Currency:         book.Currency,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		Revenue:          revenue,
		Expenses:         expenses,
		TotalRevenue:     totalRevenue.Round(2),
		TotalExpenses:    totalExpenses.Round(2),
		NetIncome:        totalRevenue.Sub(totalExpenses).Round(2),
		GeneratedAt:      time.Now().UTC(),
	}
}
