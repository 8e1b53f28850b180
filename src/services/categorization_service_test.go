package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgerlens/backend/src/ai"
	"github.com/username/ledgerlens/backend/src/models"
)

func categorizationFixture(messenger *fakeMessenger) (*CategorizationService, *fakeStore) {
	store := newFakeStore()
	store.categories = []models.Category{
		{ID: "cat-software", Name: "Software & Subscriptions"},
		{ID: "cat-meals", Name: "Meals & Entertainment"},
	}
	store.addTransaction(models.Transaction{
		ID: "tx-1", ClientBookID: "book-1", Description: "GITHUB.COM",
		Amount: decimal.NewFromInt(25), Type: models.TransactionDebit,
	})
	store.addTransaction(models.Transaction{
		ID: "tx-2", ClientBookID: "book-1", Description: "DOWNTOWN BISTRO",
		Amount: decimal.NewFromInt(84), Type: models.TransactionDebit,
	})
	store.addTransaction(models.Transaction{
		ID: "tx-3", ClientBookID: "book-1", Description: "UNKNOWN VENDOR",
		Amount: decimal.NewFromInt(10), Type: models.TransactionDebit,
	})
	return NewCategorizationService(store, ai.NewCategorizer(messenger)), store
}

const mixedConfidenceResponse = `{
	"results": [
		{"transactionId": "tx-1", "categoryId": "cat-software", "confidence": 0.97, "reasoning": "GitHub subscription"},
		{"transactionId": "tx-2", "categoryId": "cat-meals", "confidence": 0.72, "reasoning": "Restaurant name"},
		{"transactionId": "tx-3", "categoryId": "cat-meals", "confidence": 0.30, "reasoning": "Weak guess"}
	]
}`

func TestRunBatchCountsAndFlags(t *testing.T) {
	service, store := categorizationFixture(&fakeMessenger{responses: []string{mixedConfidenceResponse}})

	result, err := service.RunBatch(context.Background(), "book-1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Categorized)
	assert.Equal(t, 2, result.FlaggedForReview)
	assert.Equal(t, 0, result.Errors)
	assert.False(t, result.DryRun)

	assert.Equal(t, "cat-software", store.getTransaction("tx-1").CategoryID)
	assert.Equal(t, "ai-categorizer", store.getTransaction("tx-1").UpdatedBy)

	require.Len(t, store.flags, 2)
	flagsByTx := make(map[string]models.AnomalyFlag)
	for _, flag := range store.flags {
		flagsByTx[flag.TransactionID] = flag
	}
	// 0.72 is below the review threshold but above 0.5.
	assert.Equal(t, models.SeverityMedium, flagsByTx["tx-2"].Severity)
	// 0.30 is below 0.5.
	assert.Equal(t, models.SeverityHigh, flagsByTx["tx-3"].Severity)
	assert.Equal(t, "AI categorization confidence 30%: Weak guess", flagsByTx["tx-3"].Message)
	assert.Equal(t, "ai-categorizer", flagsByTx["tx-3"].CreatedBy)
}

func TestRunBatchDryRunMakesNoWrites(t *testing.T) {
	service, store := categorizationFixture(&fakeMessenger{responses: []string{mixedConfidenceResponse}})

	result, err := service.RunBatch(context.Background(), "book-1", true)
	require.NoError(t, err)

	// Same counters as a live run, zero mutations.
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Categorized)
	assert.Equal(t, 2, result.FlaggedForReview)
	assert.True(t, result.DryRun)

	assert.Equal(t, 0, store.assignCalls)
	assert.Empty(t, store.flags)
	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		assert.Empty(t, store.getTransaction(id).CategoryID)
	}
}

func TestRunBatchEmptyQueue(t *testing.T) {
	messenger := &fakeMessenger{}
	store := newFakeStore()
	store.categories = []models.Category{{ID: "cat-software", Name: "Software"}}
	service := NewCategorizationService(store, ai.NewCategorizer(messenger))

	result, err := service.RunBatch(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, &BatchResult{}, result)
	assert.Equal(t, 0, messenger.calls)
}

func TestRunBatchNoCategories(t *testing.T) {
	messenger := &fakeMessenger{}
	store := newFakeStore()
	store.addTransaction(models.Transaction{ID: "tx-1", ClientBookID: "book-1"})
	service := NewCategorizationService(store, ai.NewCategorizer(messenger))

	_, err := service.RunBatch(context.Background(), "", false)
	require.ErrorIs(t, err, ErrNoCategories)
	assert.Equal(t, 0, messenger.calls)
}

func TestRunBatchUnknownTransactionID(t *testing.T) {
	service, store := categorizationFixture(&fakeMessenger{responses: []string{`{
		"results": [
			{"transactionId": "tx-1", "categoryId": "cat-software", "confidence": 0.95, "reasoning": "ok"},
			{"transactionId": "tx-invented", "categoryId": "cat-software", "confidence": 0.95, "reasoning": "ok"}
		]
	}`}})

	result, err := service.RunBatch(context.Background(), "book-1", false)
	require.NoError(t, err)

	// The invented id counts as an error; the valid one still applies.
	assert.Equal(t, 1, result.Categorized)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, "cat-software", store.getTransaction("tx-1").CategoryID)
}

func TestRunBatchChunkFailureAbsorbed(t *testing.T) {
	service, store := categorizationFixture(&fakeMessenger{err: errors.New("model unavailable")})

	result, err := service.RunBatch(context.Background(), "book-1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Categorized)
	assert.Equal(t, 3, result.Errors)
	assert.Equal(t, 0, store.assignCalls)
}

func TestRunBatchSaveFailureCountsError(t *testing.T) {
	service, store := categorizationFixture(&fakeMessenger{responses: []string{mixedConfidenceResponse}})
	store.failAssign["tx-2"] = true

	result, err := service.RunBatch(context.Background(), "book-1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Categorized)
	assert.Equal(t, 1, result.Errors)
	// Only tx-3's low-confidence flag remains; tx-2 never got that far.
	assert.Equal(t, 1, result.FlaggedForReview)
}
