package fal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/directorchair/directorchair/internal/metrics"
	"github.com/directorchair/directorchair/internal/poll"
)

// SubscribeOptions tunes a queued call. Callbacks are informational; the
// outcome is always taken from the final status and result fetch.
type SubscribeOptions struct {
	WebhookURL    string
	OnEnqueue     func(requestID string)
	OnQueueUpdate func(job QueueJob)
}

// Submit enqueues a request. When webhookURL is set FAL also posts the final
// status there.
func (c *Client) Submit(ctx context.Context, endpointID string, input map[string]any, webhookURL string) (*QueueJob, error) {
	target := c.queueURL + "/" + endpointID
	if webhookURL != "" {
		target += "?fal_webhook=" + url.QueryEscape(webhookURL)
	}
	body, _, err := c.do(ctx, http.MethodPost, target, input)
	if err != nil {
		return nil, err
	}

	var job QueueJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	if job.RequestID == "" {
		return nil, fmt.Errorf("submit response for %s carried no request_id", endpointID)
	}
	if job.Status == "" {
		job.Status = StatusInQueue
	}
	return &job, nil
}

// Status fetches the current queue status including logs.
func (c *Client) Status(ctx context.Context, endpointID, requestID string) (*QueueJob, error) {
	target := fmt.Sprintf("%s/%s/requests/%s/status?logs=1", c.queueURL, appPath(endpointID), url.PathEscape(requestID))
	body, _, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	var job QueueJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if job.RequestID == "" {
		job.RequestID = requestID
	}
	return &job, nil
}

// Result fetches the output of a completed request.
func (c *Client) Result(ctx context.Context, endpointID, requestID string) (*Result, error) {
	target := fmt.Sprintf("%s/%s/requests/%s", c.queueURL, appPath(endpointID), url.PathEscape(requestID))
	body, _, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Data: body, RequestID: requestID}, nil
}

// Subscribe submits a request and polls until it settles, then returns the
// result. Logs reach OnQueueUpdate once each, in arrival order.
func (c *Client) Subscribe(ctx context.Context, endpointID string, input map[string]any, opts SubscribeOptions) (*Result, error) {
	job, err := c.Submit(ctx, endpointID, input, opts.WebhookURL)
	if err != nil {
		return nil, err
	}
	if opts.OnEnqueue != nil {
		opts.OnEnqueue(job.RequestID)
	}

	metrics.InflightJobs.Inc()
	defer metrics.InflightJobs.Dec()

	seen := 0
	var last *QueueJob
	err = poll.Until(ctx, c.poll, func(ctx context.Context, attempt int) (bool, error) {
		metrics.PollAttempts.WithLabelValues("fal").Inc()
		st, err := c.Status(ctx, endpointID, job.RequestID)
		if err != nil {
			return false, err
		}
		last = st

		// FAL returns the full log list on every poll.
		if len(st.Logs) < seen {
			seen = 0
		}
		update := *st
		update.Logs = st.Logs[seen:]
		seen = len(st.Logs)
		if opts.OnQueueUpdate != nil && (len(update.Logs) > 0 || attempt == 1) {
			opts.OnQueueUpdate(update)
		}
		return st.Terminal(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting on %s request %s: %w", endpointID, job.RequestID, err)
	}

	if last != nil && last.Status == StatusFailed {
		msg := last.Error
		if msg == "" {
			msg = "generation failed"
		}
		return nil, &APIError{StatusCode: http.StatusInternalServerError, Message: msg}
	}

	return c.Result(ctx, endpointID, job.RequestID)
}

// appPath is the owner/app prefix of an endpoint id. Queue status and result
// routes live under it regardless of the sub-path used on submit.
func appPath(endpointID string) string {
	parts := strings.Split(strings.Trim(endpointID, "/"), "/")
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return parts[0] + "/" + parts[1]
}

func observeUpstream(method string, code int, took time.Duration) {
	metrics.ObserveUpstream("fal", method, code, took)
}
