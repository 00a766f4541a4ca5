package fal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the raw provider output for a finished request.
type Result struct {
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId,omitempty"`
}

type JobStatus string

const (
	StatusInQueue    JobStatus = "IN_QUEUE"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// QueueJob is the provider-side handle for a submitted request.
type QueueJob struct {
	RequestID     string     `json:"request_id"`
	Status        JobStatus  `json:"status"`
	QueuePosition int        `json:"queue_position,omitempty"`
	Logs          []LogEntry `json:"logs,omitempty"`
	StatusURL     string     `json:"status_url,omitempty"`
	ResponseURL   string     `json:"response_url,omitempty"`
	Error         string     `json:"error,omitempty"`
}

func (j *QueueJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// APIError is a non-2xx answer from FAL. Body keeps the provider payload for
// the details field of error responses.
type APIError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FAL API error (status %d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Message: extractMessage(body)}
	if json.Valid(body) {
		e.Body = json.RawMessage(body)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return e
}

// extractMessage pulls a readable message out of the shapes FAL uses:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": ...} or
// {"error": ...}. Anything else falls back to the trimmed body text.
func extractMessage(body []byte) string {
	var parsed struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return truncate(strings.TrimSpace(string(body)), 300)
	}
	if len(parsed.Detail) > 0 {
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
			Loc []any  `json:"loc"`
		}
		if json.Unmarshal(parsed.Detail, &items) == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg == "" {
					continue
				}
				if len(it.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
				} else {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
