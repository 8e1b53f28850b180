package services

import (
	"context"
	"fmt"
	"time"

	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

const auditorTag = "ai-forensic-auditor"

// AnomalyService runs the AI forensic-audit pass over a client book's
// transactions and persists one flag per new anomaly.
type AnomalyService struct {
	store    Store
	detector *ai.AnomalyDetector
}

func NewAnomalyService(store Store, detector *ai.AnomalyDetector) *AnomalyService {
	return &AnomalyService{store: store, detector: detector}
}

// Scan loads all transactions of a book in the optional date range and
// asks the model for anomalies. Anomalies naming transactions outside
// the scanned set are discarded. Anomalies on transactions that already
// carry an open (unresolved) flag are suppressed, so repeated scans of
// the same period do not produce flag storms; resolving a flag is the
// only way to let a transaction be re-flagged. The suppression check is
// best effort, not transactional.
func (s *AnomalyService) Scan(ctx context.Context, clientBookID string, from, to *time.Time) (*ScanResult, error) {
	log := logger.FromContext(ctx)

	transactions, err := s.store.ListTransactionsByDateRange(ctx, clientBookID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	if len(transactions) == 0 {
		return &ScanResult{}, nil
	}

	anomalies, err := s.detector.DetectAnomalies(ctx, transactions)
	if err != nil {
		return nil, err
	}

	// The model must not invent transaction ids.
	scanned := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		scanned[tx.ID] = struct{}{}
	}

	var candidates []ai.AnomalyItem
	var candidateIDs []string
	for _, a := range anomalies {
		if _, ok := scanned[a.TransactionID]; !ok {
			log.Warn("Discarding anomaly for unknown transaction", "transactionID", a.TransactionID)
			continue
		}
		candidates = append(candidates, a)
		candidateIDs = append(candidateIDs, a.TransactionID)
	}

	result := &ScanResult{Scanned: len(transactions)}
	if len(candidates) == 0 {
		return result, nil
	}

	alreadyFlagged, err := s.store.ListOpenFlagTransactionIDs(ctx, clientBookID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("checking open flags: %w", err)
	}

	var flags []models.AnomalyFlag
	for _, a := range candidates {
		if _, open := alreadyFlagged[a.TransactionID]; open {
			continue
		}
		flags = append(flags, models.AnomalyFlag{
			Severity:      a.Severity,
			Message:       a.Message,
			Reasoning:     a.Reasoning,
			Confidence:    a.Confidence,
			ClientBookID:  clientBookID,
			TransactionID: a.TransactionID,
			CreatedBy:     auditorTag,
			UpdatedBy:     auditorTag,
		})
	}

	if len(flags) > 0 {
		if err := s.store.CreateAnomalyFlags(ctx, flags); err != nil {
			return nil, fmt.Errorf("saving anomaly flags: %w", err)
		}
	}

	result.Flagged = len(flags)
	log.Info("Anomaly scan finished", "clientBookID", clientBookID,
		"scanned", result.Scanned, "candidates", len(candidates), "flagged", result.Flagged)
	return result, nil
}
