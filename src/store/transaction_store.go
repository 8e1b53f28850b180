package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/ledgerlens/backend/src/models"
)

const transactionColumns = `id, client_book_id, date, description, amount, type, reference, category_id, created_at, created_by, updated_by`

func scanTransaction(rows *sql.Rows) (models.Transaction, error) {
	var tx models.Transaction
	var amountStr string
	var reference, categoryID, createdBy, updatedBy sql.NullString
	if err := rows.Scan(&tx.ID, &tx.ClientBookID, &tx.Date, &tx.Description, &amountStr,
		&tx.Type, &reference, &categoryID, &tx.CreatedAt, &createdBy, &updatedBy); err != nil {
		return tx, fmt.Errorf("scanning transaction: %w", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return tx, fmt.Errorf("parsing amount %q for transaction %s: %w", amountStr, tx.ID, err)
	}
	tx.Amount = amount
	tx.Reference = reference.String
	tx.CategoryID = categoryID.String
	tx.CreatedBy = createdBy.String
	tx.UpdatedBy = updatedBy.String
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (s *SQLStore) ListUncategorizedTransactions(ctx context.Context, clientBookID string, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE category_id IS NULL`
	args := []any{}
	if clientBookID != "" {
		query += ` AND client_book_id = ?`
		args = append(args, clientBookID)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying uncategorized transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *SQLStore) ListTransactionsByDateRange(ctx context.Context, clientBookID string, from, to *time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE client_book_id = ?`
	args := []any{clientBookID}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		query += ` AND date <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions by date range: %w", err)
	}
	return collectTransactions(rows)
}

func (s *SQLStore) ListTransactionsByReference(ctx context.Context, clientBookID string, references []string) ([]models.Transaction, error) {
	if len(references) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(references)), ",")
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE client_book_id = ? AND reference IN (` + placeholders + `)`
	args := make([]any, 0, len(references)+1)
	args = append(args, clientBookID)
	for _, ref := range references {
		args = append(args, ref)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions by reference: %w", err)
	}
	return collectTransactions(rows)
}

func (s *SQLStore) ListTransactions(ctx context.Context, clientBookID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE client_book_id = ? ORDER BY date DESC, id DESC`, clientBookID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *SQLStore) ListCategorizedDebits(ctx context.Context, clientBookID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE client_book_id = ? AND type = 'DEBIT' AND category_id IS NOT NULL`, clientBookID)
	if err != nil {
		return nil, fmt.Errorf("querying categorized debits: %w", err)
	}
	return collectTransactions(rows)
}

func (s *SQLStore) CreateTransactions(ctx context.Context, transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	// INSERT OR IGNORE skips rows whose reference already exists for
	// the book, mirroring the unique-index idempotency guarantee.
	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(id, client_book_id, date, description, amount, type, reference, category_id, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing transaction insert: %w", err)
	}
	defer stmt.Close()

	created := 0
	for _, tx := range transactions {
		result, err := stmt.ExecContext(ctx, tx.ID, tx.ClientBookID, tx.Date.UTC(), tx.Description,
			tx.Amount.String(), tx.Type, nullable(tx.Reference), nullable(tx.CategoryID),
			tx.CreatedBy, tx.UpdatedBy)
		if err != nil {
			return 0, fmt.Errorf("inserting transaction %s: %w", tx.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		created += int(affected)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction insert: %w", err)
	}
	return created, nil
}

func (s *SQLStore) AssignTransactionCategory(ctx context.Context, transactionID, categoryID, updatedBy string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, updated_by = ? WHERE id = ?`,
		categoryID, updatedBy, transactionID)
	if err != nil {
		return fmt.Errorf("assigning category to transaction %s: %w", transactionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	return nil
}

func (s *SQLStore) UpdateSyncedTransaction(ctx context.Context, transactionID string, tx models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, description = ?, amount = ?, type = ?, updated_by = ?
		WHERE id = ?`,
		tx.Date.UTC(), tx.Description, tx.Amount.String(), tx.Type, tx.UpdatedBy, transactionID)
	if err != nil {
		return fmt.Errorf("updating synced transaction %s: %w", transactionID, err)
	}
	return nil
}
