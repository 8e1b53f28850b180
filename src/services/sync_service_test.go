package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgerlens/backend/src/codat"
	"github.com/username/ledgerlens/backend/src/models"
)

func decodePage(t *testing.T, raw string) *codat.AccountTransactionsPage {
	t.Helper()
	var page codat.AccountTransactionsPage
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	return &page
}

func linkedBookStore() *fakeStore {
	store := newFakeStore()
	store.books["book-1"] = &models.ClientBook{
		ID:                "book-1",
		Name:              "Acme Consulting",
		CodatCompanyID:    "co-1",
		CodatConnectionID: "conn-1",
	}
	return store
}

func TestSyncTransactionsCreatesAndUpdates(t *testing.T) {
	store := linkedBookStore()
	// An earlier sync already recorded this transaction.
	store.addTransaction(models.Transaction{
		ID: "tx-existing", ClientBookID: "book-1",
		Reference: "codat:abc", Amount: decimal.NewFromInt(100),
		Type: models.TransactionDebit, Description: "old description",
	})

	connector := &fakeConnector{pages: []*codat.AccountTransactionsPage{
		decodePage(t, `{
			"results": [
				{"id": "abc", "date": "2026-03-10", "totalAmount": -150.555, "lines": [{"description": "Updated vendor payment"}]},
				{"id": "def", "date": "2026-03-11T09:30:00Z", "totalAmount": 2000, "note": "Client invoice"},
				{"id": "ghi", "date": "2026-03-12", "totalAmount": -50, "metadata": {"isDeleted": true}}
			],
			"pageNumber": 1
		}`),
	}}

	service := NewSyncService(store, connector)
	result, err := service.SyncTransactions(context.Background(), "co-1", "conn-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)

	updated := store.getTransaction("tx-existing")
	assert.Equal(t, "Updated vendor payment", updated.Description)
	assert.True(t, updated.Amount.Equal(decimal.RequireFromString("150.56")), "got %s", updated.Amount)
	assert.Equal(t, models.TransactionDebit, updated.Type)
	assert.Equal(t, "codat-sync", updated.UpdatedBy)

	all, _ := store.ListTransactions(context.Background(), "book-1")
	require.Len(t, all, 2)
	var created models.Transaction
	for _, tx := range all {
		if tx.Reference == "codat:def" {
			created = tx
		}
	}
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.TransactionCredit, created.Type)
	assert.Equal(t, "Client invoice", created.Description)
	assert.Equal(t, "codat-sync", created.CreatedBy)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC), created.Date.UTC())
}

func TestSyncTransactionsPaginates(t *testing.T) {
	store := linkedBookStore()
	connector := &fakeConnector{pages: []*codat.AccountTransactionsPage{
		decodePage(t, `{
			"results": [{"id": "p1", "date": "2026-03-01", "totalAmount": -10}],
			"pageNumber": 1,
			"_links": {"next": {"href": "/page2"}}
		}`),
		decodePage(t, `{
			"results": [{"id": "p2", "date": "2026-03-02", "totalAmount": -20}],
			"pageNumber": 2
		}`),
	}}

	service := NewSyncService(store, connector)
	result, err := service.SyncTransactions(context.Background(), "co-1", "conn-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, connector.calls)
}

func TestSyncTransactionsNoLinkedBook(t *testing.T) {
	store := newFakeStore()
	connector := &fakeConnector{}

	service := NewSyncService(store, connector)
	_, err := service.SyncTransactions(context.Background(), "co-1", "conn-unknown")
	require.ErrorIs(t, err, ErrNoLinkedBook)
	assert.Equal(t, 0, connector.calls)
}

func TestSyncTransactionsIdempotentRerun(t *testing.T) {
	store := linkedBookStore()
	page := `{
		"results": [{"id": "abc", "date": "2026-03-10", "totalAmount": -150}],
		"pageNumber": 1
	}`
	connector := &fakeConnector{pages: []*codat.AccountTransactionsPage{decodePage(t, page)}}
	service := NewSyncService(store, connector)

	first, err := service.SyncTransactions(context.Background(), "co-1", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 0, first.Updated)

	connector.pages = []*codat.AccountTransactionsPage{decodePage(t, page)}
	second, err := service.SyncTransactions(context.Background(), "co-1", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	all, _ := store.ListTransactions(context.Background(), "book-1")
	assert.Len(t, all, 1)
}

func TestNormalizeTransaction(t *testing.T) {
	tests := []struct {
		name       string
		input      codat.AccountTransaction
		wantType   models.TransactionType
		wantAmount string
		wantDesc   string
		wantRef    string
		wantErr    bool
	}{
		{
			name:       "negative amount becomes debit",
			input:      codat.AccountTransaction{ID: "a", Date: "2026-01-05", TotalAmount: -42.5},
			wantType:   models.TransactionDebit,
			wantAmount: "42.5",
			wantDesc:   "Codat transaction",
			wantRef:    "codat:a",
		},
		{
			name:       "positive amount becomes credit",
			input:      codat.AccountTransaction{ID: "b", Date: "2026-01-05", TotalAmount: 100},
			wantType:   models.TransactionCredit,
			wantAmount: "100",
			wantRef:    "codat:b",
			wantDesc:   "Codat transaction",
		},
		{
			name: "line description preferred over note",
			input: codat.AccountTransaction{
				ID: "c", Date: "2026-01-05", TotalAmount: -1, Note: "note",
				Lines: []codat.AccountTransactionLine{{Description: "line desc"}},
			},
			wantType:   models.TransactionDebit,
			wantAmount: "1",
			wantDesc:   "line desc",
			wantRef:    "codat:c",
		},
		{
			name:    "unparseable date",
			input:   codat.AccountTransaction{ID: "d", Date: "last tuesday", TotalAmount: 1},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := normalizeTransaction(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, tx.Type)
			assert.True(t, tx.Amount.Equal(decimal.RequireFromString(tc.wantAmount)), "got %s", tx.Amount)
			assert.Equal(t, tc.wantDesc, tx.Description)
			assert.Equal(t, tc.wantRef, tx.Reference)
		})
	}
}
