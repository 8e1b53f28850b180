// Package codat is a minimal client for the Codat accounting-data
// aggregator: companies, connections and paginated account transactions.
package codat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// Client talks to the Codat REST API. Auth is HTTP basic with the API
// key as username and an empty password.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient builds a Codat client. Timeouts are delegated to the
// supplied http.Client; pass nil for http.DefaultClient.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":")),
		httpClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshaling codat request")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "building codat request")
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "codat %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode:    resp.StatusCode,
			CorrelationID: resp.Header.Get("Codat-Correlation-Id"),
			Message:       resp.Status,
		}
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			if errBody.Message != "" {
				apiErr.Message = errBody.Message
			} else if errBody.Error != "" {
				apiErr.Message = errBody.Error
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding codat %s %s response", method, path)
	}
	return nil
}

// CreateCompany registers a new company with Codat.
func (c *Client) CreateCompany(ctx context.Context, name string) (*Company, error) {
	var company Company
	err := c.do(ctx, http.MethodPost, "/companies", map[string]string{"name": name}, &company)
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// CreateConnection creates a data connection for a company and returns
// the Link URL the client uses to authorize their accounting platform.
func (c *Client) CreateConnection(ctx context.Context, companyID string) (*Connection, error) {
	var conn Connection
	path := fmt.Sprintf("/companies/%s/connections", url.PathEscape(companyID))
	if err := c.do(ctx, http.MethodPost, path, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListAccountTransactions fetches one page of account transactions for a
// connection.
func (c *Client) ListAccountTransactions(ctx context.Context, companyID, connectionID string, page, pageSize int) (*AccountTransactionsPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	path := fmt.Sprintf("/companies/%s/connections/%s/data/accountTransactions?%s",
		url.PathEscape(companyID), url.PathEscape(connectionID), params.Encode())

	var result AccountTransactionsPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
