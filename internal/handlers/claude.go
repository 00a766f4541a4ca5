package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/directorchair/directorchair/internal/anthropic"
	"github.com/directorchair/directorchair/internal/dispatch"
	"github.com/directorchair/directorchair/internal/logger"
)

// ClaudeHandler serves prompt assistance for the generation forms.
type ClaudeHandler struct {
	client *anthropic.Client
	log    logger.Scoped
}

func NewClaudeHandler(client *anthropic.Client) *ClaudeHandler {
	return &ClaudeHandler{client: client, log: logger.Tag("claude")}
}

// Complete handles POST /api/claude {prompt, system?, model?, max_tokens?}.
func (h *ClaudeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string `json:"prompt"`
		System    string `json:"system"`
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFailure(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	resp, err := h.client.Complete(r.Context(), anthropic.Request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  []anthropic.Message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		status := http.StatusInternalServerError
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
			status = apiErr.StatusCode
		}
		h.log.Error("completion failed: %v", err)
		writeFailure(w, status, err.Error())
		return
	}

	data, _ := json.Marshal(map[string]interface{}{
		"text":        resp.Text(),
		"model":       resp.Model,
		"stop_reason": resp.StopReason,
	})
	id := resp.ID
	writeResult(w, http.StatusOK, dispatch.GenerationResult{Success: true, Data: data, RequestID: &id})
}
