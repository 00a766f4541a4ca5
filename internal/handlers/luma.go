package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/directorchair/directorchair/internal/dispatch"
	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/luma"
	"github.com/directorchair/directorchair/internal/poll"
)

// LumaHandler talks to Luma Dream Machine directly rather than through FAL.
type LumaHandler struct {
	client *luma.Client
	log    logger.Scoped
}

func NewLumaHandler(client *luma.Client) *LumaHandler {
	return &LumaHandler{client: client, log: logger.Tag("luma")}
}

// Create handles POST /api/luma/generations: create, then poll until the
// generation settles.
func (h *LumaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req luma.CreateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFailure(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if !h.client.IsConfigured() {
		writeFailure(w, http.StatusInternalServerError, luma.ErrNotConfigured.Error())
		return
	}

	gen, err := h.client.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var apiErr *luma.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
			status = apiErr.StatusCode
		case errors.Is(err, poll.ErrExhausted):
			status = http.StatusRequestTimeout
		}
		h.log.Error("generation failed: %v", err)
		writeFailure(w, status, err.Error())
		return
	}

	data, err := json.Marshal(gen)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "failed to encode generation")
		return
	}
	id := gen.ID
	writeResult(w, http.StatusOK, dispatch.GenerationResult{Success: true, Data: data, RequestID: &id})
}
