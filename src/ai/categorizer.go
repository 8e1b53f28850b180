package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

// ConfidenceThreshold is the confidence below which a categorization is
// flagged for human review.
const ConfidenceThreshold = 0.85

const categorizeMaxTokens = 4096

const categorizeSystemPrompt = `You are an expert accountant that categorizes financial transactions. You will receive a list of transactions and a chart of accounts (categories). For each transaction, determine the most appropriate category based on the description, amount, and transaction type.

Return a JSON object with a "results" array. Each entry must contain:
- "transactionId": the exact transaction ID provided
- "categoryId": the ID of the best matching category from the chart of accounts
- "confidence": a number between 0 and 1 indicating how confident you are (1 = certain, 0 = no idea)
- "reasoning": a brief explanation (one sentence) of why you chose this category

Guidelines:
- Use the transaction description to identify the vendor/payee and nature of the expense
- Consider the amount and whether it's a DEBIT (expense/outflow) or CREDIT (income/inflow)
- If a transaction clearly matches a category, confidence should be 0.90-1.00
- If it's a reasonable guess but ambiguous, confidence should be 0.70-0.89
- If you're unsure, pick the best available option but use a low confidence score
- Always pick exactly one category per transaction from the provided list`

// TransactionInput is one transaction as presented to the model.
type TransactionInput struct {
	ID          string
	Description string
	Amount      string // decimal string
	Type        models.TransactionType
}

// CategoryOption is one chart-of-accounts entry as presented to the model.
type CategoryOption struct {
	ID          string
	Name        string
	Description string
}

// CategorizationResult is the model's decision for one transaction.
type CategorizationResult struct {
	TransactionID string  `json:"transactionId"`
	CategoryID    string  `json:"categoryId"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// InvalidMapping records a model result that named a category outside
// the supplied chart of accounts.
type InvalidMapping struct {
	TransactionID     string `json:"transactionId"`
	InvalidCategoryID string `json:"invalidCategoryId"`
}

// InvalidCategoryError fails the whole call when any returned categoryId
// is outside the supplied category set. No partial application: this is
// a deliberate all-or-nothing guard against the model hallucinating a
// category. It carries the complete list of offending mappings.
type InvalidCategoryError struct {
	InvalidMappings []InvalidMapping
}

func (e *InvalidCategoryError) Error() string {
	details := make([]string, 0, len(e.InvalidMappings))
	for _, m := range e.InvalidMappings {
		details = append(details, fmt.Sprintf("transaction %q -> categoryId %q", m.TransactionID, m.InvalidCategoryID))
	}
	return fmt.Sprintf("AI returned %d invalid category ID(s): %s", len(e.InvalidMappings), strings.Join(details, "; "))
}

// Categorizer formats transactions and the category catalog into a
// prompt, invokes the model, and validates the structural and
// referential correctness of the response. It does not write to storage.
type Categorizer struct {
	messenger Messenger
}

func NewCategorizer(messenger Messenger) *Categorizer {
	return &Categorizer{messenger: messenger}
}

type categorizeResponse struct {
	Results []CategorizationResult `json:"results"`
}

// CategorizeTransactions asks the model to classify each transaction
// into one of the supplied categories. Every returned categoryId is
// checked against the supplied set; any violation fails the call as a
// whole with an InvalidCategoryError.
func (c *Categorizer) CategorizeTransactions(ctx context.Context, transactions []TransactionInput, categories []CategoryOption) ([]CategorizationResult, error) {
	if len(transactions) == 0 {
		return nil, nil
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories supplied for categorization")
	}

	var categoryLines []string
	for _, cat := range categories {
		line := fmt.Sprintf("- ID: %q | Name: %q", cat.ID, cat.Name)
		if cat.Description != "" {
			line += fmt.Sprintf(" | Description: %s", cat.Description)
		}
		categoryLines = append(categoryLines, line)
	}

	var transactionLines []string
	for _, tx := range transactions {
		transactionLines = append(transactionLines, fmt.Sprintf(
			"- Transaction ID: %q | Description: %q | Amount: %s | Type: %s",
			tx.ID, tx.Description, tx.Amount, tx.Type))
	}

	userMessage := fmt.Sprintf("## Chart of Accounts (Categories)\n%s\n\n## Transactions to Categorize\n%s",
		strings.Join(categoryLines, "\n"), strings.Join(transactionLines, "\n"))

	logger.FromContext(ctx).Debug("Requesting AI categorization",
		"transactions", len(transactions), "categories", len(categories))

	responseText, err := c.messenger.Complete(ctx, Request{
		System:    categorizeSystemPrompt,
		User:      userMessage,
		MaxTokens: categorizeMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	jsonText, err := extractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var parsed categorizeResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse categorization response: %w", err)
	}

	for _, r := range parsed.Results {
		if r.TransactionID == "" || r.CategoryID == "" {
			return nil, fmt.Errorf("categorization result missing transactionId or categoryId")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("categorization confidence %v out of range for transaction %s", r.Confidence, r.TransactionID)
		}
	}

	validCategoryIDs := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		validCategoryIDs[cat.ID] = struct{}{}
	}

	var invalid []InvalidMapping
	for _, r := range parsed.Results {
		if _, ok := validCategoryIDs[r.CategoryID]; !ok {
			invalid = append(invalid, InvalidMapping{
				TransactionID:     r.TransactionID,
				InvalidCategoryID: r.CategoryID,
			})
		}
	}
	if len(invalid) > 0 {
		return nil, &InvalidCategoryError{InvalidMappings: invalid}
	}

	return parsed.Results, nil
}
