package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

// fakeMessenger returns canned model responses in order.
type fakeMessenger struct {
	responses []string
	err       error
	calls     int
}

func (m *fakeMessenger) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	response := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return response, nil
}

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	categories   []models.Category
	transactions []*models.Transaction
	flags        []models.AnomalyFlag
	books        map[string]*models.ClientBook
	orgs         []models.Organization
	deductions   []models.TaxDeduction
	reports      []models.MonthEndReport

	assignCalls int
	failAssign  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      make(map[string]*models.ClientBook),
		failAssign: make(map[string]bool),
	}
}

func (s *fakeStore) addTransaction(tx models.Transaction) {
	copied := tx
	s.transactions = append(s.transactions, &copied)
}

func (s *fakeStore) getTransaction(id string) *models.Transaction {
	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx
		}
	}
	return nil
}

func (s *fakeStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *fakeStore) ListUncategorizedTransactions(ctx context.Context, clientBookID string, limit int) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.CategoryID != "" {
			continue
		}
		if clientBookID != "" && tx.ClientBookID != clientBookID {
			continue
		}
		result = append(result, *tx)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *fakeStore) ListTransactionsByDateRange(ctx context.Context, clientBookID string, from, to *time.Time) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.ClientBookID != clientBookID {
			continue
		}
		if from != nil && tx.Date.Before(*from) {
			continue
		}
		if to != nil && tx.Date.After(*to) {
			continue
		}
		result = append(result, *tx)
	}
	return result, nil
}

func (s *fakeStore) ListTransactionsByReference(ctx context.Context, clientBookID string, references []string) ([]models.Transaction, error) {
	wanted := make(map[string]struct{}, len(references))
	for _, ref := range references {
		wanted[ref] = struct{}{}
	}
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.ClientBookID != clientBookID {
			continue
		}
		if _, ok := wanted[tx.Reference]; ok {
			result = append(result, *tx)
		}
	}
	return result, nil
}

func (s *fakeStore) ListTransactions(ctx context.Context, clientBookID string) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.ClientBookID == clientBookID {
			result = append(result, *tx)
		}
	}
	return result, nil
}

func (s *fakeStore) ListCategorizedDebits(ctx context.Context, clientBookID string) ([]models.Transaction, error) {
	var result []models.Transaction
	for _, tx := range s.transactions {
		if tx.ClientBookID == clientBookID && tx.Type == models.TransactionDebit && tx.CategoryID != "" {
			result = append(result, *tx)
		}
	}
	return result, nil
}

func (s *fakeStore) CreateTransactions(ctx context.Context, transactions []models.Transaction) (int, error) {
	created := 0
	for _, tx := range transactions {
		duplicate := false
		if tx.Reference != "" {
			for _, existing := range s.transactions {
				if existing.ClientBookID == tx.ClientBookID && existing.Reference == tx.Reference {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}
		s.addTransaction(tx)
		created++
	}
	return created, nil
}

func (s *fakeStore) AssignTransactionCategory(ctx context.Context, transactionID, categoryID, updatedBy string) error {
	s.assignCalls++
	if s.failAssign[transactionID] {
		return fmt.Errorf("forced failure for %s", transactionID)
	}
	tx := s.getTransaction(transactionID)
	if tx == nil {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	tx.CategoryID = categoryID
	tx.UpdatedBy = updatedBy
	return nil
}

func (s *fakeStore) UpdateSyncedTransaction(ctx context.Context, transactionID string, updated models.Transaction) error {
	tx := s.getTransaction(transactionID)
	if tx == nil {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	tx.Date = updated.Date
	tx.Description = updated.Description
	tx.Amount = updated.Amount
	tx.Type = updated.Type
	tx.UpdatedBy = updated.UpdatedBy
	return nil
}

func (s *fakeStore) CreateAnomalyFlag(ctx context.Context, flag models.AnomalyFlag) error {
	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}
	s.flags = append(s.flags, flag)
	return nil
}

func (s *fakeStore) CreateAnomalyFlags(ctx context.Context, flags []models.AnomalyFlag) error {
	for _, flag := range flags {
		if err := s.CreateAnomalyFlag(ctx, flag); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) ListOpenFlagTransactionIDs(ctx context.Context, clientBookID string, transactionIDs []string) (map[string]struct{}, error) {
	wanted := make(map[string]struct{}, len(transactionIDs))
	for _, id := range transactionIDs {
		wanted[id] = struct{}{}
	}
	open := make(map[string]struct{})
	for _, flag := range s.flags {
		if flag.Resolved || flag.ClientBookID != clientBookID {
			continue
		}
		if _, ok := wanted[flag.TransactionID]; ok {
			open[flag.TransactionID] = struct{}{}
		}
	}
	return open, nil
}

func (s *fakeStore) GetClientBook(ctx context.Context, id string) (*models.ClientBook, error) {
	if book, ok := s.books[id]; ok {
		copied := *book
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) GetClientBookByConnection(ctx context.Context, connectionID string) (*models.ClientBook, error) {
	for _, book := range s.books {
		if book.CodatConnectionID == connectionID {
			copied := *book
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListClientBooks(ctx context.Context) ([]models.ClientBook, error) {
	var result []models.ClientBook
	for _, book := range s.books {
		result = append(result, *book)
	}
	return result, nil
}

func (s *fakeStore) CreateClientBook(ctx context.Context, book models.ClientBook, transactions []models.Transaction) error {
	copied := book
	s.books[book.ID] = &copied
	for _, tx := range transactions {
		tx.ClientBookID = book.ID
		s.addTransaction(tx)
	}
	return nil
}

func (s *fakeStore) DeleteClientBook(ctx context.Context, id string) error {
	if _, ok := s.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(s.books, id)
	var remaining []*models.Transaction
	for _, tx := range s.transactions {
		if tx.ClientBookID != id {
			remaining = append(remaining, tx)
		}
	}
	s.transactions = remaining
	return nil
}

func (s *fakeStore) SetClientBookConnection(ctx context.Context, id, companyID, connectionID string) error {
	book, ok := s.books[id]
	if !ok {
		return ErrBookNotFound
	}
	book.CodatCompanyID = companyID
	book.CodatConnectionID = connectionID
	return nil
}

func (s *fakeStore) DeleteTaxDeductionsByCreator(ctx context.Context, clientBookID, createdBy string) error {
	var remaining []models.TaxDeduction
	for _, d := range s.deductions {
		if d.ClientBookID == clientBookID && d.CreatedBy == createdBy {
			continue
		}
		remaining = append(remaining, d)
	}
	s.deductions = remaining
	return nil
}

func (s *fakeStore) CreateTaxDeduction(ctx context.Context, deduction models.TaxDeduction) error {
	s.deductions = append(s.deductions, deduction)
	return nil
}

func (s *fakeStore) CreateMonthEndReport(ctx context.Context, report models.MonthEndReport) error {
	s.reports = append(s.reports, report)
	return nil
}

func (s *fakeStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	for _, org := range s.orgs {
		if org.ID == id {
			copied := org
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetFirstOrganization(ctx context.Context) (*models.Organization, error) {
	if len(s.orgs) == 0 {
		return nil, nil
	}
	copied := s.orgs[0]
	return &copied, nil
}

func (s *fakeStore) UpdateOrganizationSubscription(ctx context.Context, stripeCustomerID, subscriptionID, priceID string) error {
	for i := range s.orgs {
		if s.orgs[i].StripeCustomerID == stripeCustomerID {
			s.orgs[i].StripeSubscriptionID = subscriptionID
			s.orgs[i].StripePriceID = priceID
			return nil
		}
	}
	return ErrOrgNotFound
}

func (s *fakeStore) TouchOrganization(ctx context.Context, stripeCustomerID, updatedBy string) error {
	for i := range s.orgs {
		if s.orgs[i].StripeCustomerID == stripeCustomerID {
			s.orgs[i].UpdatedBy = updatedBy
			return nil
		}
	}
	return ErrOrgNotFound
}

// fakeConnector serves canned Codat pages.
type fakeConnector struct {
	pages []*codat.AccountTransactionsPage
	calls int
}

func (c *fakeConnector) ListAccountTransactions(ctx context.Context, companyID, connectionID string, page, pageSize int) (*codat.AccountTransactionsPage, error) {
	c.calls++
	if page-1 >= len(c.pages) {
		return &codat.AccountTransactionsPage{}, nil
	}
	return c.pages[page-1], nil
}
