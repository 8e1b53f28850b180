package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

const autoTaxTag = "auto-tax"

type deductionRule struct {
	DeductionName string
	Description   string
}

// taxDeductibleCategories maps category names to the deduction each one
// feeds. Categorized DEBIT transactions in these categories sum into one
// deduction row per category.
var taxDeductibleCategories = map[string]deductionRule{
	"Equipment & Depreciation": {
		DeductionName: "Equipment Depreciation",
		Description:   "Section 179 deduction on business equipment",
	},
	"Vehicle Expenses": {
		DeductionName: "Business Vehicle Expenses",
		Description:   "Vehicle lease, fuel, and maintenance deductions",
	},
	"Home Office Deduction": {
		DeductionName: "Home Office Deduction",
		Description:   "Simplified method home office deduction",
	},
	"Business Insurance": {
		DeductionName: "Business Insurance Premiums",
		Description:   "Deductible business insurance premiums",
	},
	"Education & Training": {
		DeductionName: "Professional Development",
		Description:   "Business education and training expenses",
	},
	"Retirement Contributions": {
		DeductionName: "Retirement Plan Contributions",
		Description:   "Employer retirement plan contributions",
	},
	"Taxes": {
		DeductionName: "State & Local Tax Payments",
		Description:   "Estimated state and local tax payments",
	},
}

// TaxDeductionSummary reports the outcome of one deduction generation run.
type TaxDeductionSummary struct {
	Generated   int             `json:"generated"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// TaxService generates tax deduction rows from category-based rules.
type TaxService struct {
	store Store
}

func NewTaxService(store Store) *TaxService {
	return &TaxService{store: store}
}

// GenerateDeductions regenerates the auto-generated deduction rows for
// one client book: existing rows tagged auto-tax are deleted wholesale
// and replaced with fresh rows for the current tax year. Transactions in
// eligible categories sum per category regardless of year; see DESIGN.md
// for the year-scoping decision.
func (s *TaxService) GenerateDeductions(ctx context.Context, clientBookID string) (*TaxDeductionSummary, error) {
	book, err := s.store.GetClientBook(ctx, clientBookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	transactions, err := s.store.ListCategorizedDebits(ctx, clientBookID)
	if err != nil {
		return nil, fmt.Errorf("loading categorized debits: %w", err)
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	categoryNameByID := make(map[string]string, len(categories))
	for _, cat := range categories {
		categoryNameByID[cat.ID] = cat.Name
	}

	totals := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		name := categoryNameByID[tx.CategoryID]
		if _, eligible := taxDeductibleCategories[name]; !eligible {
			continue
		}
		totals[name] = totals[name].Add(tx.Amount)
	}

	// Auto-generated rows are replaced wholesale, never diffed.
	if err := s.store.DeleteTaxDeductionsByCreator(ctx, clientBookID, autoTaxTag); err != nil {
		return nil, fmt.Errorf("deleting previous auto-generated deductions: %w", err)
	}

	currentYear := time.Now().UTC().Year()
	summary := &TaxDeductionSummary{TotalAmount: decimal.Zero}

	for categoryName, amount := range totals {
		rule := taxDeductibleCategories[categoryName]
		deduction := models.TaxDeduction{
			ID:           uuid.New().String(),
			Name:         rule.DeductionName,
			Description:  rule.Description,
			Amount:       amount,
			TaxYear:      currentYear,
			Eligible:     true,
			ClientBookID: clientBookID,
			CreatedBy:    autoTaxTag,
			UpdatedBy:    autoTaxTag,
		}
		if err := s.store.CreateTaxDeduction(ctx, deduction); err != nil {
			return nil, fmt.Errorf("creating deduction %q: %w", rule.DeductionName, err)
		}
		summary.Generated++
		summary.TotalAmount = summary.TotalAmount.Add(amount)
	}

	logger.FromContext(ctx).Info("Tax deductions regenerated",
		"clientBookID", clientBookID, "generated", summary.Generated,
		"totalAmount", summary.TotalAmount.String())
	return summary, nil
}
