package services

import (
	"context"
	"fmt"

	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

const (
	// BatchLimit is the ceiling on uncategorized transactions processed
	// in one batch run.
	BatchLimit = 500
	// ChunkSize is how many transactions go into one model call.
	ChunkSize = 10

	categorizerTag = "ai-categorizer"
)

// CategorizationService orchestrates the AI categorizer over all
// uncategorized transactions of one client book (or all books), in
// fixed-size sequential chunks.
type CategorizationService struct {
	store       Store
	categorizer *ai.Categorizer
}

func NewCategorizationService(store Store, categorizer *ai.Categorizer) *CategorizationService {
	return &CategorizationService{store: store, categorizer: categorizer}
}

// RunBatch processes up to BatchLimit uncategorized transactions, oldest
// first. clientBookID empty means all books. Chunk failures and
// per-result save failures are absorbed into the error count; the only
// hard failures are the empty-catalog precondition and storage errors on
// the initial loads.
func (s *CategorizationService) RunBatch(ctx context.Context, clientBookID string, dryRun bool) (*BatchResult, error) {
	log := logger.FromContext(ctx)
	if dryRun {
		log.Info("Categorization batch starting in dry-run mode; no database writes will be made")
	}

	transactions, err := s.store.ListUncategorizedTransactions(ctx, clientBookID, BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("loading uncategorized transactions: %w", err)
	}

	if len(transactions) == 0 {
		return &BatchResult{DryRun: dryRun}, nil
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}

	categoryOptions := make([]ai.CategoryOption, len(categories))
	categoryNames := make(map[string]string, len(categories))
	for i, cat := range categories {
		categoryOptions[i] = ai.CategoryOption{ID: cat.ID, Name: cat.Name, Description: cat.Description}
		categoryNames[cat.ID] = cat.Name
	}

	byID := make(map[string]models.Transaction, len(transactions))
	for _, tx := range transactions {
		byID[tx.ID] = tx
	}

	result := &BatchResult{Processed: len(transactions), DryRun: dryRun}

	for start := 0; start < len(transactions); start += ChunkSize {
		end := min(start+ChunkSize, len(transactions))
		chunk := make([]ai.TransactionInput, 0, end-start)
		for _, tx := range transactions[start:end] {
			chunk = append(chunk, ai.TransactionInput{
				ID:          tx.ID,
				Description: tx.Description,
				Amount:      tx.Amount.String(),
				Type:        tx.Type,
			})
		}

		results, err := s.categorizer.CategorizeTransactions(ctx, chunk, categoryOptions)
		if err != nil {
			// A failed chunk does not abort the batch.
			log.Error("Categorization chunk failed", "size", len(chunk), "error", err)
			result.Errors += len(chunk)
			continue
		}

		for _, r := range results {
			tx, ok := byID[r.TransactionID]
			if !ok {
				log.Warn("Categorization result references a transaction not in the batch", "transactionID", r.TransactionID)
				result.Errors++
				continue
			}

			if dryRun {
				log.Info("Dry run: would categorize transaction",
					"transactionID", tx.ID,
					"description", tx.Description,
					"category", categoryNames[r.CategoryID],
					"confidence", fmt.Sprintf("%.0f%%", r.Confidence*100),
					"reasoning", r.Reasoning)
				if r.Confidence < ai.ConfidenceThreshold {
					log.Info("Dry run: would flag for review",
						"transactionID", tx.ID,
						"confidence", fmt.Sprintf("%.0f%%", r.Confidence*100),
						"threshold", fmt.Sprintf("%.0f%%", ai.ConfidenceThreshold*100))
					result.FlaggedForReview++
				}
				result.Categorized++
				continue
			}

			if err := s.store.AssignTransactionCategory(ctx, r.TransactionID, r.CategoryID, categorizerTag); err != nil {
				log.Error("Failed to save categorization", "transactionID", r.TransactionID, "error", err)
				result.Errors++
				continue
			}
			result.Categorized++

			// Flag low-confidence results for human review.
			if r.Confidence < ai.ConfidenceThreshold {
				severity := models.SeverityMedium
				if r.Confidence < 0.5 {
					severity = models.SeverityHigh
				}
				flag := models.AnomalyFlag{
					Severity:      severity,
					Message:       fmt.Sprintf("AI categorization confidence %.0f%%: %s", r.Confidence*100, r.Reasoning),
					Reasoning:     r.Reasoning,
					Confidence:    r.Confidence,
					ClientBookID:  tx.ClientBookID,
					TransactionID: r.TransactionID,
					CreatedBy:     categorizerTag,
					UpdatedBy:     categorizerTag,
				}
				if err := s.store.CreateAnomalyFlag(ctx, flag); err != nil {
					log.Error("Failed to create review flag", "transactionID", r.TransactionID, "error", err)
					result.Errors++
					continue
				}
				result.FlaggedForReview++
			}
		}
	}

	if dryRun {
		log.Info("Dry run complete",
			"processed", result.Processed,
			"wouldCategorize", result.Categorized,
			"wouldFlagForReview", result.FlaggedForReview,
			"errors", result.Errors)
	}

	return result, nil
}
