package codat

import "fmt"

// Error is a failed Codat API call, carrying the HTTP status and the
// correlation id Codat returns for support lookups.
type Error struct {
	Message       string
	StatusCode    int
	CorrelationID string
}

func (e *Error) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("codat: %s (status %d, correlation %s)", e.Message, e.StatusCode, e.CorrelationID)
	}
	return fmt.Sprintf("codat: %s (status %d)", e.Message, e.StatusCode)
}

// Company is a Codat company record.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Redirect string `json:"redirect"`
	Platform string `json:"platform"`
	Created  string `json:"created"`
}

// Connection is a link between a Codat company and an accounting platform.
type Connection struct {
	ID            string `json:"id"`
	IntegrationID string `json:"integrationId"`
	PlatformName  string `json:"platformName"`
	LinkURL       string `json:"linkUrl"`
	Status        string `json:"status"` // PendingAuth | Linked | Unlinked | Deauthorized
	Created       string `json:"created"`
}

// AccountTransactionLine is one line of a synced transaction.
type AccountTransactionLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// AccountTransaction is one transaction as reported by Codat.
type AccountTransaction struct {
	ID          string                   `json:"id"`
	Note        string                   `json:"note"`
	Date        string                   `json:"date"`
	Currency    string                   `json:"currency"`
	TotalAmount float64                  `json:"totalAmount"`
	Lines       []AccountTransactionLine `json:"lines"`
	Metadata    struct {
		IsDeleted bool `json:"isDeleted"`
	} `json:"metadata"`
}

type pageLinks struct {
	Next *struct {
		Href string `json:"href"`
	} `json:"next"`
}

// AccountTransactionsPage is one page of synced transactions.
type AccountTransactionsPage struct {
	Results      []AccountTransaction `json:"results"`
	PageNumber   int                  `json:"pageNumber"`
	PageSize     int                  `json:"pageSize"`
	TotalResults int                  `json:"totalResults"`
	Links        pageLinks            `json:"_links"`
}

// HasMore reports whether another page follows this one.
func (p *AccountTransactionsPage) HasMore() bool {
	return p.Links.Next != nil
}

// WebhookEvent is the body of a Codat webhook delivery.
type WebhookEvent struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	CompanyID    string `json:"companyId"`
	ConnectionID string `json:"connectionId"`
	DataType     string `json:"dataType"`
}
