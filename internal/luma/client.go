// Package luma is a direct client for the Luma Dream Machine API, used when
// a generation should bypass FAL.
package luma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/directorchair/directorchair/internal/metrics"
	"github.com/directorchair/directorchair/internal/poll"
)

const DefaultBaseURL = "https://api.lumalabs.ai/dream-machine/v1"

var ErrNotConfigured = errors.New("LUMAAI_API_KEY is not configured")

// DefaultPolicy waits up to five minutes in 5s steps.
var DefaultPolicy = poll.Policy{Interval: 5 * time.Second, MaxAttempts: 60}

type State string

const (
	StateQueued    State = "queued"
	StateDreaming  State = "dreaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

type Generation struct {
	ID            string          `json:"id"`
	State         State           `json:"state"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Assets        json.RawMessage `json:"assets,omitempty"`
	Model         string          `json:"model,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Request       json.RawMessage `json:"request,omitempty"`
}

// CreateRequest is the subset of generation options the studio uses.
// Extra holds any further documented fields verbatim.
type CreateRequest struct {
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model,omitempty"`
	AspectRatio string         `json:"aspect_ratio,omitempty"`
	Resolution  string         `json:"resolution,omitempty"`
	Duration    string         `json:"duration,omitempty"`
	Loop        *bool          `json:"loop,omitempty"`
	Keyframes   map[string]any `json:"keyframes,omitempty"`
}

// APIError is a non-2xx answer from Luma.
type APIError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Luma API error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	policy     poll.Policy
}

func NewClient(apiKey, baseURL string, policy poll.Policy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if policy.Interval <= 0 {
		policy = DefaultPolicy
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		policy:     policy,
	}
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Generation, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("Prompt is required")
	}
	if req.Model == "" {
		req.Model = "ray-2"
	}
	var gen Generation
	if err := c.do(ctx, http.MethodPost, "/generations", req, &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Generation, error) {
	var gen Generation
	if err := c.do(ctx, http.MethodGet, "/generations/"+url.PathEscape(id), nil, &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

// Generate creates a generation and polls it until it completes or fails.
func (c *Client) Generate(ctx context.Context, req CreateRequest) (*Generation, error) {
	gen, err := c.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	current := gen
	err = poll.Until(ctx, c.policy, func(ctx context.Context, attempt int) (bool, error) {
		if attempt == 1 && current.State == StateCompleted {
			return true, nil
		}
		metrics.PollAttempts.WithLabelValues("luma").Inc()
		g, err := c.Get(ctx, gen.ID)
		if err != nil {
			return false, err
		}
		current = g
		return g.State == StateCompleted || g.State == StateFailed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting on luma generation %s: %w", gen.ID, err)
	}
	if current.State == StateFailed {
		reason := current.FailureReason
		if reason == "" {
			reason = "generation failed"
		}
		return current, &APIError{StatusCode: http.StatusInternalServerError, Message: reason}
	}
	return current, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Luma API request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	metrics.ObserveUpstream("luma", method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Body = respBody
			if parsed.Detail != "" {
				apiErr.Message = parsed.Detail
			}
		}
		return apiErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
