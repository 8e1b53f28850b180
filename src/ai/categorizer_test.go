package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

// fakeMessenger returns canned responses in order.
type fakeMessenger struct {
	responses []string
	err       error
	requests  []Request
}

func (m *fakeMessenger) Complete(ctx context.Context, req Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	response := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return response, nil
}

func testCategoryOptions() []CategoryOption {
	return []CategoryOption{
		{ID: "cat-software", Name: "Software & Subscriptions"},
		{ID: "cat-meals", Name: "Meals & Entertainment", Description: "Business meals"},
	}
}

func testTransactionInputs() []TransactionInput {
	return []TransactionInput{
		{ID: "tx-1", Description: "GITHUB.COM", Amount: "25.00", Type: models.TransactionDebit},
		{ID: "tx-2", Description: "DOWNTOWN BISTRO", Amount: "84.50", Type: models.TransactionDebit},
	}
}

func TestCategorizeTransactions(t *testing.T) {
	messenger := &fakeMessenger{responses: []string{`{
		"results": [
			{"transactionId": "tx-1", "categoryId": "cat-software", "confidence": 0.97, "reasoning": "GitHub is a software subscription"},
			{"transactionId": "tx-2", "categoryId": "cat-meals", "confidence": 0.72, "reasoning": "Restaurant name suggests a business meal"}
		]
	}`}}
	categorizer := NewCategorizer(messenger)

	results, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs(), testCategoryOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cat-software", results[0].CategoryID)
	assert.Equal(t, 0.97, results[0].Confidence)
	assert.Equal(t, "tx-2", results[1].TransactionID)

	require.Len(t, messenger.requests, 1)
	assert.Contains(t, messenger.requests[0].User, "tx-1")
	assert.Contains(t, messenger.requests[0].User, "cat-meals")
}

func TestCategorizeTransactionsExtractsJSONFromProse(t *testing.T) {
	messenger := &fakeMessenger{responses: []string{
		"Here are the categorizations:\n```json\n{\"results\": [{\"transactionId\": \"tx-1\", \"categoryId\": \"cat-software\", \"confidence\": 0.9, \"reasoning\": \"ok\"}]}\n```\nDone.",
	}}
	categorizer := NewCategorizer(messenger)

	results, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs()[:1], testCategoryOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cat-software", results[0].CategoryID)
}

func TestCategorizeTransactionsRejectsInvalidCategories(t *testing.T) {
	messenger := &fakeMessenger{responses: []string{`{
		"results": [
			{"transactionId": "tx-1", "categoryId": "cat-made-up", "confidence": 0.9, "reasoning": "x"},
			{"transactionId": "tx-2", "categoryId": "cat-also-fake", "confidence": 0.8, "reasoning": "y"}
		]
	}`}}
	categorizer := NewCategorizer(messenger)

	results, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs(), testCategoryOptions())
	require.Error(t, err)
	assert.Nil(t, results)

	var invalid *InvalidCategoryError
	require.True(t, errors.As(err, &invalid))
	// All offending mappings are reported, not just the first.
	require.Len(t, invalid.InvalidMappings, 2)
	assert.Equal(t, "cat-made-up", invalid.InvalidMappings[0].InvalidCategoryID)
	assert.Contains(t, invalid.Error(), "cat-also-fake")
}

func TestCategorizeTransactionsRejectsPartialInvalid(t *testing.T) {
	// One valid result does not rescue the call when another is invalid.
	messenger := &fakeMessenger{responses: []string{`{
		"results": [
			{"transactionId": "tx-1", "categoryId": "cat-software", "confidence": 0.9, "reasoning": "x"},
			{"transactionId": "tx-2", "categoryId": "cat-fake", "confidence": 0.8, "reasoning": "y"}
		]
	}`}}
	categorizer := NewCategorizer(messenger)

	results, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs(), testCategoryOptions())
	require.Error(t, err)
	assert.Nil(t, results)

	var invalid *InvalidCategoryError
	require.True(t, errors.As(err, &invalid))
	require.Len(t, invalid.InvalidMappings, 1)
	assert.Equal(t, "tx-2", invalid.InvalidMappings[0].TransactionID)
}

func TestCategorizeTransactionsRejectsConfidenceOutOfRange(t *testing.T) {
	messenger := &fakeMessenger{responses: []string{`{
		"results": [{"transactionId": "tx-1", "categoryId": "cat-software", "confidence": 1.4, "reasoning": "x"}]
	}`}}
	categorizer := NewCategorizer(messenger)

	_, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs()[:1], testCategoryOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestCategorizeTransactionsRejectsMalformedResponse(t *testing.T) {
	messenger := &fakeMessenger{responses: []string{"the model refused to answer"}}
	categorizer := NewCategorizer(messenger)

	_, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs(), testCategoryOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON found")
}

func TestCategorizeTransactionsEmptyInput(t *testing.T) {
	messenger := &fakeMessenger{}
	categorizer := NewCategorizer(messenger)

	results, err := categorizer.CategorizeTransactions(context.Background(), nil, testCategoryOptions())
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Empty(t, messenger.requests)
}

func TestCategorizeTransactionsNoCategories(t *testing.T) {
	messenger := &fakeMessenger{}
	categorizer := NewCategorizer(messenger)

	_, err := categorizer.CategorizeTransactions(context.Background(), testTransactionInputs(), nil)
	require.Error(t, err)
	assert.Empty(t, messenger.requests)
}
