package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/directorchair/directorchair/internal/fal"
	"github.com/directorchair/directorchair/internal/models"
	"github.com/directorchair/directorchair/internal/sanitize"
)

// GenerationResult is the uniform envelope every generation route answers
// with, success or not.
type GenerationResult struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	RequestID *string         `json:"requestId"`
	Error     *string         `json:"error"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Normalize maps a provider outcome to an HTTP status and envelope.
func Normalize(result *fal.Result, err error) (int, GenerationResult) {
	if err != nil {
		msg := err.Error()
		out := GenerationResult{Error: &msg}
		var apiErr *fal.APIError
		if errors.As(err, &apiErr) {
			out.Error = &apiErr.Message
			out.Details = apiErr.Body
		}
		return StatusFor(err), out
	}

	out := GenerationResult{Success: true}
	if result != nil {
		out.Data = result.Data
		if result.RequestID != "" {
			id := result.RequestID
			out.RequestID = &id
		}
	}
	if len(out.Data) == 0 {
		out.Data = json.RawMessage("null")
	}
	return http.StatusOK, out
}

// StatusFor classifies an error into the HTTP status the client sees.
func StatusFor(err error) int {
	var ve *ValidationError
	var fe *sanitize.FieldError
	var te *TimeoutError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &fe), errors.Is(err, models.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.As(err, &te), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "authentication"):
		return http.StatusUnauthorized
	case strings.Contains(lower, "rate limit"):
		return http.StatusTooManyRequests
	}

	var apiErr *fal.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
