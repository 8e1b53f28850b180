// Package ai wraps the external language-model service used for
// transaction classification and anomaly detection.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Request is a single prompt to the model service.
type Request struct {
	System    string
	User      string
	MaxTokens int64
}

// Messenger is the injectable model capability: prompt in, raw text out.
// Tests substitute a deterministic fake returning canned JSON.
type Messenger interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type anthropicMessenger struct {
	client anthropic.Client
	model  string
}

// NewAnthropicMessenger returns a Messenger backed by the Anthropic API.
func NewAnthropicMessenger(apiKey, model string) Messenger {
	return &anthropicMessenger{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (m *anthropicMessenger) Complete(ctx context.Context, req Request) (string, error) {
	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: req.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}
	return responseText, nil
}

// extractJSON pulls the JSON object out of a model response. The model
// may wrap JSON in markdown code fences.
func extractJSON(responseText string) (string, error) {
	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return "", fmt.Errorf("no JSON found in response: %s", responseText)
	}
	return responseText[jsonStart : jsonEnd+1], nil
}
