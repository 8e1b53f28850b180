package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

const (
	syncTag      = "codat-sync"
	syncPageSize = 100
)

// SyncService pulls account transactions from the Codat connector into
// the transaction store, keyed by external reference.
type SyncService struct {
	store     Store
	connector ConnectorClient
}

func NewSyncService(store Store, connector ConnectorClient) *SyncService {
	return &SyncService{store: store, connector: connector}
}

func buildReference(codatID string) string {
	return "codat:" + codatID
}

// normalizeTransaction maps a Codat row onto the local model. Codat
// signs amounts: negative = debit, positive = credit. Amounts are stored
// as a non-negative magnitude rounded to cents.
func normalizeTransaction(tx codat.AccountTransaction) (models.Transaction, error) {
	txType := models.TransactionCredit
	if tx.TotalAmount < 0 {
		txType = models.TransactionDebit
	}

	amount := decimal.NewFromFloat(tx.TotalAmount).Abs().Round(2)

	description := "Codat transaction"
	if len(tx.Lines) > 0 && tx.Lines[0].Description != "" {
		description = tx.Lines[0].Description
	} else if tx.Note != "" {
		description = tx.Note
	}

	date, err := time.Parse(time.RFC3339, tx.Date)
	if err != nil {
		// Codat sometimes sends date-only strings.
		date, err = time.Parse("2006-01-02", tx.Date)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("unparseable transaction date %q: %w", tx.Date, err)
		}
	}

	return models.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        txType,
		Reference:   buildReference(tx.ID),
	}, nil
}

// SyncTransactions pulls all pages of account transactions for a
// connection and upserts them into the book linked to that connection:
// rows with an unseen reference are created, rows whose reference
// already exists have their core fields updated. Fails before any write
// when no book is linked to the connection.
func (s *SyncService) SyncTransactions(ctx context.Context, companyID, connectionID string) (*SyncResult, error) {
	log := logger.FromContext(ctx)

	book, err := s.store.GetClientBookByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("%w: connection %s", ErrNoLinkedBook, connectionID)
	}

	result := &SyncResult{}
	page := 1

	for {
		pageResult, err := s.connector.ListAccountTransactions(ctx, companyID, connectionID, page, syncPageSize)
		if err != nil {
			return nil, err
		}
		if len(pageResult.Results) == 0 {
			break
		}

		var normalized []models.Transaction
		var references []string
		for _, raw := range pageResult.Results {
			if raw.Metadata.IsDeleted {
				continue
			}
			tx, err := normalizeTransaction(raw)
			if err != nil {
				log.Warn("Skipping unparseable synced transaction", "codatID", raw.ID, "error", err)
				continue
			}
			normalized = append(normalized, tx)
			references = append(references, tx.Reference)
		}

		existing, err := s.store.ListTransactionsByReference(ctx, book.ID, references)
		if err != nil {
			return nil, fmt.Errorf("looking up existing references: %w", err)
		}
		existingByRef := make(map[string]string, len(existing))
		for _, tx := range existing {
			existingByRef[tx.Reference] = tx.ID
		}

		var toCreate []models.Transaction
		for _, tx := range normalized {
			if existingID, ok := existingByRef[tx.Reference]; ok {
				tx.UpdatedBy = syncTag
				if err := s.store.UpdateSyncedTransaction(ctx, existingID, tx); err != nil {
					return nil, fmt.Errorf("updating synced transaction %s: %w", existingID, err)
				}
				result.Updated++
				continue
			}
			tx.ID = uuid.New().String()
			tx.ClientBookID = book.ID
			tx.CreatedBy = syncTag
			tx.UpdatedBy = syncTag
			toCreate = append(toCreate, tx)
		}

		if len(toCreate) > 0 {
			created, err := s.store.CreateTransactions(ctx, toCreate)
			if err != nil {
				return nil, fmt.Errorf("creating synced transactions: %w", err)
			}
			result.Created += created
		}

		if !pageResult.HasMore() {
			break
		}
		page++
	}

	log.Info("Connector sync finished", "clientBookID", book.ID,
		"created", result.Created, "updated", result.Updated)
	return result, nil
}
