// Package apiclient implements the HTTP client for the admin resource API.
// Every method maps one REST endpoint; HTTP failures are classified into the
// model error taxonomy so callers never branch on raw status codes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opspanel/opspanel/pkg/model"
)

// Config holds the resource API client configuration.
type Config struct {
	// BaseURL is the root of the resource API, without a trailing slash.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each individual request.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("api: base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("api: invalid base_url: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("api: timeout must be positive")
	}
	return nil
}

// Client is a remote client for the admin resource API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new resource API client.
func New(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// List fetches one page of a resource collection.
func (c *Client) List(ctx context.Context, resource model.Resource, f model.ListFilter) (*model.Page, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+string(resource), f.Canonical(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return nil, err
	}

	var page model.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, decodeError(err)
	}
	return &page, nil
}

// Count fetches the total number of rows matching the filter.
func (c *Client) Count(ctx context.Context, resource model.Resource, f model.ListFilter) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/count", resource), f.Canonical(), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return 0, err
	}

	var body struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, decodeError(err)
	}
	return body.Total, nil
}

// Get fetches a single row by id.
func (c *Client) Get(ctx context.Context, resource model.Resource, id string) (model.Item, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%s", resource, id), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return nil, err
	}

	var item model.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, decodeError(err)
	}
	return item, nil
}

// Delete removes a single row.
func (c *Client) Delete(ctx context.Context, resource model.Resource, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/%s", resource, id), "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classify(resp)
}

// DeleteBatch removes multiple rows in one call. The backend replies with
// the number of rows it deleted, and optionally with the ids it could not.
func (c *Client) DeleteBatch(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error) {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/batch", resource), "", ids)
	if err != nil {
		return model.BulkOutcome{}, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return model.BulkOutcome{}, err
	}

	var body struct {
		DeletedCount int      `json:"deletedCount"`
		FailedIDs    []string `json:"failedIds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.BulkOutcome{}, decodeError(err)
	}
	return model.BulkOutcome{SucceededCount: body.DeletedCount, FailedIDs: body.FailedIDs}, nil
}

// Approve approves a single row (permission requests and the like).
func (c *Client) Approve(ctx context.Context, resource model.Resource, id string) error {
	return c.postAction(ctx, fmt.Sprintf("/%s/%s/approve", resource, id))
}

// Reject rejects a single row.
func (c *Client) Reject(ctx context.Context, resource model.Resource, id string) error {
	return c.postAction(ctx, fmt.Sprintf("/%s/%s/reject", resource, id))
}

// BulkApprove approves multiple rows in one call.
func (c *Client) BulkApprove(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error) {
	return c.postBulk(ctx, fmt.Sprintf("/%s/bulk/approve", resource), ids)
}

// BulkReject rejects multiple rows in one call.
func (c *Client) BulkReject(ctx context.Context, resource model.Resource, ids []string) (model.BulkOutcome, error) {
	return c.postBulk(ctx, fmt.Sprintf("/%s/bulk/reject", resource), ids)
}

func (c *Client) postAction(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodPost, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classify(resp)
}

func (c *Client) postBulk(ctx context.Context, path string, ids []string) (model.BulkOutcome, error) {
	resp, err := c.do(ctx, http.MethodPost, path, "", ids)
	if err != nil {
		return model.BulkOutcome{}, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return model.BulkOutcome{}, err
	}

	var outcome model.BulkOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return model.BulkOutcome{}, decodeError(err)
	}
	return outcome, nil
}

func (c *Client) do(ctx context.Context, method, path, query string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(jsonData)
	}

	u := c.baseURL + path
	if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if model.IsCanceled(err) {
			return nil, model.ErrCanceled
		}
		return nil, &model.APIError{Kind: model.KindNetwork, Message: err.Error()}
	}
	return resp, nil
}

// classify maps a non-2xx response onto the error taxonomy. The response
// body, when present, becomes the user-facing message.
func classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := readMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &model.APIError{Kind: model.KindNotFound, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &model.APIError{Kind: model.KindValidation, Status: resp.StatusCode, Message: msg}
	default:
		return &model.APIError{Kind: model.KindServer, Status: resp.StatusCode, Message: msg}
	}
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var wrapped struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &wrapped) == nil {
		if wrapped.Error != "" {
			return wrapped.Error
		}
		if wrapped.Message != "" {
			return wrapped.Message
		}
	}
	return string(data)
}

func decodeError(err error) error {
	return &model.APIError{Kind: model.KindServer, Message: fmt.Sprintf("malformed response: %v", err)}
}
