package allegro

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

const (
	DefaultHost    = "https://api.allegro.pl"
	acceptHeader   = "application/vnd.allegro.public.v1+json"
	maxBulkPage    = 100
	maxEventPage   = 1000
	DefaultMaxSkip = 10000
)

type Client struct {
	host          string
	httpClient    *http.Client
	listTimeout   time.Duration
	detailTimeout time.Duration
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// Option tunes per-call timeouts.
type Option func(*Client)

func WithTimeouts(list, detail time.Duration) Option {
	return func(c *Client) {
		if list > 0 {
			c.listTimeout = list
		}
		if detail > 0 {
			c.detailTimeout = detail
		}
	}
}

func NewClient(httpClient *http.Client, host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		host:          strings.TrimRight(host, "/"),
		httpClient:    httpClient,
		listTimeout:   30 * time.Second,
		detailTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) doRequest(ctx context.Context, accessToken, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListEventsSince returns order events after cursor, oldest first. An empty
// cursor asks upstream for its default window.
func (c *Client) ListEventsSince(ctx context.Context, accessToken, cursor string, limit int) ([]Event, error) {
	if limit <= 0 || limit > maxEventPage {
		limit = maxEventPage
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("from", cursor)
	}
	body, err := c.doRequest(ctx, accessToken, "/order/events", query, c.listTimeout)
	if err != nil {
		return nil, err
	}
	return parseEvents(body)
}

// GetLatestEventCursor reads the newest event id from the statistics endpoint.
func (c *Client) GetLatestEventCursor(ctx context.Context, accessToken string) (*LatestEvent, error) {
	body, err := c.doRequest(ctx, accessToken, "/order/events/statistics", nil, c.listTimeout)
	if err != nil {
		return nil, err
	}
	var resp struct {
		LatestEvent *LatestEvent `json:"latestEvent"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{What: "event statistics", Err: err}
	}
	if resp.LatestEvent == nil || resp.LatestEvent.ID == "" {
		return nil, nil
	}
	return resp.LatestEvent, nil
}

// ListOrdersByDateRange returns one page of checkout forms bought within the range.
func (c *Client) ListOrdersByDateRange(ctx context.Context, accessToken string, params DateRangeParams) ([]map[string]any, error) {
	limit := params.Limit
	if limit <= 0 || limit > maxBulkPage {
		limit = maxBulkPage
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(params.Offset))
	query.Set("sort", "lineItems.boughtAt")
	if params.From != nil {
		query.Set("lineItems.boughtAt.gte", params.From.UTC().Format(time.RFC3339))
	}
	if params.To != nil {
		query.Set("lineItems.boughtAt.lte", params.To.UTC().Format(time.RFC3339))
	}
	body, err := c.doRequest(ctx, accessToken, "/order/checkout-forms", query, c.listTimeout)
	if err != nil {
		return nil, err
	}
	var resp struct {
		CheckoutForms []map[string]any `json:"checkoutForms"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{What: "checkout forms", Err: err}
	}
	return resp.CheckoutForms, nil
}

func (c *Client) GetOrderDetail(ctx context.Context, accessToken, orderID string) (map[string]any, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	body, err := c.doRequest(ctx, accessToken, "/order/checkout-forms/"+url.PathEscape(orderID), nil, c.detailTimeout)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &DecodeError{What: "checkout form " + orderID, Err: err}
	}
	return doc, nil
}

type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func statusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	status, ok := statusOf(err)
	return ok && status == http.StatusNotFound
}

func IsAuth(err error) bool {
	status, ok := statusOf(err)
	return ok && (status == http.StatusUnauthorized || status == http.StatusForbidden)
}

// IsTransient reports whether err is worth retrying: 429, 5xx, timeouts and
// transport failures. Caller cancellation and malformed bodies are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if status, ok := statusOf(err); ok {
		return status == http.StatusTooManyRequests || status >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return true
}
