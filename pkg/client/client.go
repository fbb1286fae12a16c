// Package client is a typed HTTP client for the ledger API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the ledger API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken sets the bearer token sent on protected calls.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL, including
// any base path the server is mounted under.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error envelope returned by the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a rejected credential.
func IsUnauthorized(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope struct {
	Status string          `json:"status"`
	Code   int             `json:"code"`
	Msg    json.RawMessage `json:"msg"`
}

// do sends form and decodes the envelope. When v is non-nil msg.data is
// decoded into it; otherwise the confirmation string is returned.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, v any) (string, error) {
	if c == nil {
		return "", errors.New("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
	} else {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Status != "success" {
		var msg string
		_ = json.Unmarshal(env.Msg, &msg)
		return "", APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		var msg string
		_ = json.Unmarshal(env.Msg, &msg)
		return msg, nil
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(env.Msg, &wrapper); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(wrapper.Data, v); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return "", nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, account, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/reg", url.Values{"account": {account}, "password": {password}}, nil)
	return err
}

// Login exchanges credentials for a token. The token is also kept for
// subsequent calls on c.
func (c *Client) Login(ctx context.Context, account, password string) (string, error) {
	var token string
	if _, err := c.do(ctx, http.MethodPost, "/login", url.Values{"account": {account}, "password": {password}}, &token); err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// Tag reflects API tag payloads.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AddTag creates a tag.
func (c *Client) AddTag(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodPost, "/tag/add", url.Values{"name": {name}}, nil)
	return err
}

// ListTags returns the caller's tags.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var out struct {
		List []Tag `json:"list"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/tag/list", nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// DeleteTag removes a tag.
func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodPost, "/tag/del", url.Values{"id": {strconv.FormatInt(id, 10)}}, nil)
	return err
}

// NewTransaction describes a transaction to record.
type NewTransaction struct {
	Pay             string
	PayMethod       string
	Comment         string
	TransactionDate string
	TagID           int64
}

// AddTransaction records a transaction.
func (c *Client) AddTransaction(ctx context.Context, in NewTransaction) error {
	form := url.Values{
		"pay":              {in.Pay},
		"pay_method":       {in.PayMethod},
		"comment":          {in.Comment},
		"transaction_date": {in.TransactionDate},
		"tag_id":           {strconv.FormatInt(in.TagID, 10)},
	}
	_, err := c.do(ctx, http.MethodPost, "/bill/add", form, nil)
	return err
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodPost, "/bill/del", url.Values{"id": {strconv.FormatInt(id, 10)}}, nil)
	return err
}

// Transaction reflects API transaction payloads.
type Transaction struct {
	ID              int64   `json:"id"`
	TagID           *int64  `json:"tag_id"`
	TagName         *string `json:"tag_name"`
	Pay             string  `json:"pay"`
	PayMethod       string  `json:"pay_method"`
	Comment         string  `json:"comment"`
	TransactionDate string  `json:"transaction_date"`
}

// Statement is a listing for a date window. PayAmount is nil when the
// window selected nothing.
type Statement struct {
	List      []Transaction `json:"list"`
	PayAmount *string       `json:"pay_amount"`
}

// ListTransactions returns the transactions dated within [begin, end].
func (c *Client) ListTransactions(ctx context.Context, begin, end string) (*Statement, error) {
	var st Statement
	if _, err := c.do(ctx, http.MethodGet, "/bill/list", url.Values{"begin": {begin}, "end": {end}}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
