package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/directorchair/directorchair/internal/dispatch"
)

// configured reports whether a provider client has credentials.
type configured interface {
	IsConfigured() bool
}

// FalHandler is the generic FAL proxy: any endpoint id the registry can
// resolve by catalog, family prefix or marker, run or queued as the
// registry decides.
type FalHandler struct {
	dispatcher *dispatch.Dispatcher
	client     configured
}

func NewFalHandler(d *dispatch.Dispatcher, client configured) *FalHandler {
	return &FalHandler{dispatcher: d, client: client}
}

// Get handles GET /api/fal?model=<id>&input=<json object>.
func (h *FalHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := map[string]any{}
	if raw := q.Get("input"); raw != "" {
		var input map[string]any
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			writeFailure(w, http.StatusBadRequest, "input must be a JSON object")
			return
		}
		body["input"] = input
	}
	if model := q.Get("model"); model != "" {
		body["model"] = model
	}
	if id := q.Get("generationId"); id != "" {
		body["generationId"] = id
	}
	status, res := h.dispatcher.Dispatch(r.Context(), dispatch.ParseRequest(body), dispatch.Options{})
	writeResult(w, status, res)
}

// Post handles POST /api/fal with model|endpoint|endpointId and flattened
// parameters.
func (h *FalHandler) Post(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	status, res := h.dispatcher.Dispatch(r.Context(), dispatch.ParseRequest(body), dispatch.Options{})
	writeResult(w, status, res)
}

func (h *FalHandler) Status(w http.ResponseWriter, r *http.Request) {
	source := "none"
	if h.client != nil && h.client.IsConfigured() {
		source = "runtime"
		if os.Getenv("FAL_KEY") != "" {
			source = "env"
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured": source != "none",
		"source":     source,
	})
}
