package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/username/ledgerlens/backend/src/models"
)

func (s *SQLStore) CreateAnomalyFlag(ctx context.Context, flag models.AnomalyFlag) error {
	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO anomaly_flags
			(id, severity, message, reasoning, confidence, resolved, client_book_id, transaction_id, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flag.ID, flag.Severity, flag.Message, nullable(flag.Reasoning), flag.Confidence,
		flag.Resolved, flag.ClientBookID, nullable(flag.TransactionID), flag.CreatedBy, flag.UpdatedBy)
	if err != nil {
		return fmt.Errorf("inserting anomaly flag: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateAnomalyFlags(ctx context.Context, flags []models.AnomalyFlag) error {
	if len(flags) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning flag insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO anomaly_flags
			(id, severity, message, reasoning, confidence, resolved, client_book_id, transaction_id, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing flag insert: %w", err)
	}
	defer stmt.Close()

	for _, flag := range flags {
		if flag.ID == "" {
			flag.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, flag.ID, flag.Severity, flag.Message,
			nullable(flag.Reasoning), flag.Confidence, flag.Resolved,
			flag.ClientBookID, nullable(flag.TransactionID), flag.CreatedBy, flag.UpdatedBy); err != nil {
			return fmt.Errorf("inserting anomaly flag for transaction %s: %w", flag.TransactionID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing flag insert: %w", err)
	}
	return nil
}

func (s *SQLStore) ListOpenFlagTransactionIDs(ctx context.Context, clientBookID string, transactionIDs []string) (map[string]struct{}, error) {
	open := make(map[string]struct{})
	if len(transactionIDs) == 0 {
		return open, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(transactionIDs)), ",")
	query := `SELECT transaction_id FROM anomaly_flags
		WHERE client_book_id = ? AND resolved = 0 AND transaction_id IN (` + placeholders + `)`
	args := make([]any, 0, len(transactionIDs)+1)
	args = append(args, clientBookID)
	for _, id := range transactionIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying open flags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var transactionID string
		if err := rows.Scan(&transactionID); err != nil {
			return nil, fmt.Errorf("scanning open flag: %w", err)
		}
		open[transactionID] = struct{}{}
	}
	return open, rows.Err()
}
