package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/directorchair/directorchair/internal/poll"
)

const (
	DefaultRunURL   = "https://fal.run"
	DefaultQueueURL = "https://queue.fal.run"
)

var ErrNotConfigured = errors.New("FAL_KEY is not configured")

// Client talks to FAL's synchronous run endpoint and its request queue.
type Client struct {
	apiKey     string
	runURL     string
	queueURL   string
	httpClient *http.Client
	poll       poll.Policy
	mu         sync.RWMutex
}

type Option func(*Client)

// WithBaseURLs points the client at alternative run and queue hosts.
func WithBaseURLs(runURL, queueURL string) Option {
	return func(c *Client) {
		c.runURL = strings.TrimRight(runURL, "/")
		c.queueURL = strings.TrimRight(queueURL, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollPolicy sets how Subscribe waits on queued jobs.
func WithPollPolicy(p poll.Policy) Option {
	return func(c *Client) { c.poll = p }
}

// NewClient creates a new FAL client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		runURL:   DefaultRunURL,
		queueURL: DefaultQueueURL,
		// No client-level timeout; callers bound each call with a context.
		httpClient: &http.Client{},
		poll:       poll.Policy{Interval: poll.DefaultInterval},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateAPIKey hot-reloads the API key.
func (c *Client) UpdateAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Run calls an endpoint synchronously and returns its output.
func (c *Client) Run(ctx context.Context, endpointID string, input map[string]any) (*Result, error) {
	body, header, err := c.do(ctx, http.MethodPost, c.runURL+"/"+endpointID, input)
	if err != nil {
		return nil, err
	}
	return &Result{Data: body, RequestID: header.Get("x-fal-request-id")}, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (json.RawMessage, http.Header, error) {
	key := c.key()
	if key == "" {
		return nil, nil, ErrNotConfigured
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+key)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("FAL API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	observeUpstream(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, newAPIError(resp.StatusCode, respBody)
	}
	if !json.Valid(respBody) {
		return nil, nil, fmt.Errorf("decode response: invalid JSON from %s", url)
	}
	return respBody, resp.Header, nil
}
