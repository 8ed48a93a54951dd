// Package backend is the HTTP client for the internal API of the upstream
// learning platform. It is the only place the recommender does I/O: the
// core consumes it through the recommend.Fetcher interface and stays a
// pure function of the returned snapshots.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

var (
	// ErrUpstreamUnavailable covers connection failures and 5xx answers
	// that persist after all retries.
	ErrUpstreamUnavailable = errors.New("upstream backend unavailable")

	// ErrUpstreamAuth means the backend rejected the internal API key.
	// Retrying cannot help; the request fails immediately.
	ErrUpstreamAuth = errors.New("upstream backend rejected credentials")
)

const (
	internalPrefix  = "/api/v1/internal"
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 2 // retries after the first attempt, 3 tries total
	apiKeyHeaderKey = "X-Internal-API-Key"
)

// Client talks to the backend's internal API. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use this).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient builds a client for the given base URL, authenticating every
// call with the internal API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries: defaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// FetchHistory returns the learner's interaction-history snapshot. An
// unknown learner is not an error: the backend answers 404 and the client
// returns an empty history, which the core handles as cold start.
func (c *Client) FetchHistory(ctx context.Context, learnerID string) (*model.History, error) {
	endpoint := fmt.Sprintf("/learners/%s/history", url.PathEscape(learnerID))

	var history model.History
	err := c.getJSON(ctx, endpoint, nil, &history)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return &model.History{LearnerID: learnerID}, nil
		}
		return nil, err
	}
	if history.LearnerID == "" {
		history.LearnerID = learnerID
	}
	return &history, nil
}

// FetchCatalog returns the candidate catalog snapshot, optionally
// restricted to one item type.
func (c *Client) FetchCatalog(ctx context.Context, itemType model.ItemType) ([]model.Item, error) {
	query := url.Values{}
	if itemType != model.ItemTypeAny {
		query.Set("type", string(itemType))
	}

	var items []model.Item
	if err := c.getJSON(ctx, "/items/candidates", query, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Feedback is a learner's reaction to a served recommendation, forwarded
// to the backend for offline evaluation.
type Feedback struct {
	LearnerID string         `json:"learner_id" binding:"required"`
	ItemID    string         `json:"item_id" binding:"required"`
	ItemType  model.ItemType `json:"item_type"`
	Action    string         `json:"action" binding:"required"` // e.g. "clicked", "dismissed", "completed"
	Value     float64        `json:"value,omitempty"`
}

// SaveFeedback forwards recommendation feedback to the backend.
func (c *Client) SaveFeedback(ctx context.Context, fb Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/recommendations/feedback", nil, body, nil)
}

// errNotFound is internal to the client; callers decide per endpoint
// whether 404 is an empty result or a failure.
var errNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, out)
}

// do performs one internal-API call with exponential backoff on retryable
// failures, mirroring the fetch contract: auth rejections and client
// errors are permanent, connection errors and 5xx are retried.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body []byte, out any) error {
	u := c.baseURL + internalPrefix + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(apiKeyHeaderKey, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w (status %d)", ErrUpstreamAuth, resp.StatusCode))
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(errNotFound)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w (status %d)", ErrUpstreamUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			msg, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("%w: backend error (status %d): %s",
				ErrUpstreamUnavailable, resp.StatusCode, msg))
		}

		if out == nil {
			return nil
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
			// Some endpoints answer bare payloads without the envelope.
			if err := json.Unmarshal(raw, out); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: malformed response: %v", ErrUpstreamUnavailable, err))
			}
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: malformed response data: %v", ErrUpstreamUnavailable, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(operation, policy)
}
