package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/models"
)

const anomalyMaxTokens = 8192

const anomalySystemPrompt = `You are a forensic auditor. Analyze the following transactions for suspicious patterns that go beyond simple rules, such as unusual vendor relationships, split purchase structuring, or velocity changes.

For each suspicious transaction, return:
- "transactionId": the exact transaction ID
- "severity": one of "LOW", "MEDIUM", "HIGH", "CRITICAL"
- "message": a concise one-line summary of the anomaly (e.g. "Duplicate payment to vendor within 24 hours")
- "reasoning": a detailed 2-3 sentence explanation of why this transaction is suspicious, including what pattern you detected and why it matters
- "confidence": a number between 0 and 1 indicating how confident you are this is a real anomaly

Severity guidelines:
- CRITICAL: Strong evidence of fraud, split structuring, or systematic manipulation (confidence > 0.9)
- HIGH: Highly suspicious patterns like duplicate payments, unusual vendor relationships (confidence > 0.8)
- MEDIUM: Moderately suspicious like unusual timing, round numbers, or velocity changes (confidence > 0.6)
- LOW: Minor irregularities worth noting but likely benign (confidence > 0.4)

Only flag transactions you genuinely believe are anomalous. If all transactions look normal, return an empty anomalies array. Do not flag transactions just to produce output.

Return a JSON object with an "anomalies" array.`

// AnomalyItem is one suspicious transaction reported by the model.
type AnomalyItem struct {
	TransactionID string                 `json:"transactionId"`
	Severity      models.AnomalySeverity `json:"severity"`
	Message       string                 `json:"message"`
	Reasoning     string                 `json:"reasoning"`
	Confidence    float64                `json:"confidence"`
}

// AnomalyDetector asks the model to act as a forensic auditor over a
// transaction set. No storage writes happen here.
type AnomalyDetector struct {
	messenger Messenger
}

func NewAnomalyDetector(messenger Messenger) *AnomalyDetector {
	return &AnomalyDetector{messenger: messenger}
}

type anomalyResponse struct {
	Anomalies []AnomalyItem `json:"anomalies"`
}

// DetectAnomalies runs one model call over the full transaction set and
// returns zero or more anomalies. Structural violations (unknown
// severity, confidence out of range) fail the call as a whole.
func (d *AnomalyDetector) DetectAnomalies(ctx context.Context, transactions []models.Transaction) ([]AnomalyItem, error) {
	if len(transactions) == 0 {
		return nil, nil
	}

	var lines []string
	for _, tx := range transactions {
		line := fmt.Sprintf("- ID: %q | Date: %s | Description: %q | Amount: %s | Type: %s",
			tx.ID, tx.Date.UTC().Format("2006-01-02"), tx.Description, tx.Amount.String(), tx.Type)
		if tx.Reference != "" {
			line += fmt.Sprintf(" | Ref: %q", tx.Reference)
		}
		lines = append(lines, line)
	}

	userMessage := fmt.Sprintf("Analyze these %d transactions for anomalies:\n\n%s",
		len(transactions), strings.Join(lines, "\n"))

	logger.FromContext(ctx).Debug("Requesting AI anomaly scan", "transactions", len(transactions))

	responseText, err := d.messenger.Complete(ctx, Request{
		System:    anomalySystemPrompt,
		User:      userMessage,
		MaxTokens: anomalyMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	jsonText, err := extractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var parsed anomalyResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse anomaly response: %w", err)
	}

	for _, a := range parsed.Anomalies {
		if a.TransactionID == "" || a.Message == "" {
			return nil, fmt.Errorf("anomaly result missing transactionId or message")
		}
		if !models.ValidSeverity(a.Severity) {
			return nil, fmt.Errorf("unknown anomaly severity %q for transaction %s", a.Severity, a.TransactionID)
		}
		if a.Confidence < 0 || a.Confidence > 1 {
			return nil, fmt.Errorf("anomaly confidence %v out of range for transaction %s", a.Confidence, a.TransactionID)
		}
	}

	return parsed.Anomalies, nil
}
