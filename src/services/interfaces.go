package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/models"
)

// Define common service errors
var (
	ErrNoCategories = errors.New("no categories found; create categories before running categorization")
	ErrBookNotFound = errors.New("client book not found")
	ErrNoLinkedBook = errors.New("no client book linked to this connection")
	ErrOrgNotFound  = errors.New("organization not found")
)

// BatchResult reports the outcome of one categorization batch run.
// Partial failure is expected and reported through the counts, never
// through an error.
type BatchResult struct {
	Processed        int  `json:"processed"`
	Categorized      int  `json:"categorized"`
	FlaggedForReview int  `json:"flaggedForReview"`
	Errors           int  `json:"errors"`
	DryRun           bool `json:"dryRun"`
}

// ScanResult reports the outcome of one anomaly scan.
type ScanResult struct {
	Scanned int `json:"scanned"`
	Flagged int `json:"flagged"`
}

// SyncResult reports the outcome of one connector sync.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Store is the persistence boundary for all services. The SQL
// implementation lives in src/store; tests substitute an in-memory fake.
type Store interface {
	// Categories
	ListCategories(ctx context.Context) ([]models.Category, error)

	// Transactions
	ListUncategorizedTransactions(ctx context.Context, clientBookID string, limit int) ([]models.Transaction, error)
	ListTransactionsByDateRange(ctx context.Context, clientBookID string, from, to *time.Time) ([]models.Transaction, error)
	ListTransactionsByReference(ctx context.Context, clientBookID string, references []string) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, clientBookID string) ([]models.Transaction, error)
	ListCategorizedDebits(ctx context.Context, clientBookID string) ([]models.Transaction, error)
	CreateTransactions(ctx context.Context, transactions []models.Transaction) (int, error)
	AssignTransactionCategory(ctx context.Context, transactionID, categoryID, updatedBy string) error
	UpdateSyncedTransaction(ctx context.Context, transactionID string, tx models.Transaction) error

	// Anomaly flags
	CreateAnomalyFlag(ctx context.Context, flag models.AnomalyFlag) error
	CreateAnomalyFlags(ctx context.Context, flags []models.AnomalyFlag) error
	ListOpenFlagTransactionIDs(ctx context.Context, clientBookID string, transactionIDs []string) (map[string]struct{}, error)

	// Client books
	GetClientBook(ctx context.Context, id string) (*models.ClientBook, error)
	GetClientBookByConnection(ctx context.Context, connectionID string) (*models.ClientBook, error)
	ListClientBooks(ctx context.Context) ([]models.ClientBook, error)
	CreateClientBook(ctx context.Context, book models.ClientBook, transactions []models.Transaction) error
	DeleteClientBook(ctx context.Context, id string) error
	SetClientBookConnection(ctx context.Context, id, companyID, connectionID string) error

	// Tax deductions
	DeleteTaxDeductionsByCreator(ctx context.Context, clientBookID, createdBy string) error
	CreateTaxDeduction(ctx context.Context, deduction models.TaxDeduction) error

	// Reports
	CreateMonthEndReport(ctx context.Context, report models.MonthEndReport) error

	// Organizations
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetFirstOrganization(ctx context.Context) (*models.Organization, error)
	UpdateOrganizationSubscription(ctx context.Context, stripeCustomerID, subscriptionID, priceID string) error
	TouchOrganization(ctx context.Context, stripeCustomerID, updatedBy string) error
}

// ConnectorClient is the slice of the Codat client the sync service
// needs; tests substitute a fake page source.
type ConnectorClient interface {
	ListAccountTransactions(ctx context.Context, companyID, connectionID string, page, pageSize int) (*codat.AccountTransactionsPage, error)
}
