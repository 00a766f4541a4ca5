package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/directorchair/directorchair/internal/dispatch"
	"github.com/directorchair/directorchair/internal/models"
)

// GenerateHandler serves the composite endpoint and the per-model preset
// routes.
type GenerateHandler struct {
	dispatcher *dispatch.Dispatcher
	registry   *models.Registry
}

func NewGenerateHandler(d *dispatch.Dispatcher, reg *models.Registry) *GenerateHandler {
	if reg == nil {
		reg = models.Default()
	}
	return &GenerateHandler{dispatcher: d, registry: reg}
}

// Generate handles POST /api/generate. Model and prompt are both required.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	status, res := h.dispatcher.Dispatch(r.Context(), dispatch.ParseRequest(body), dispatch.Options{RequirePrompt: true})
	writeResult(w, status, res)
}

// Preset handles POST /api/generate/{slug...}.
func (h *GenerateHandler) Preset(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(chi.URLParam(r, "*"), "/")
	if _, ok := h.registry.LookupPreset(slug); !ok {
		writeFailure(w, http.StatusNotFound, "Unknown generation route: "+slug)
		return
	}
	body, err := decodeBody(w, r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	status, res := h.dispatcher.DispatchPreset(r.Context(), slug, body)
	writeResult(w, status, res)
}
