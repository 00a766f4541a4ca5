package handlers

import (
	"net/http"

	"github.com/directorchair/directorchair/internal/models"
)

type ModelsHandler struct {
	registry *models.Registry
}

func NewModelsHandler(reg *models.Registry) *ModelsHandler {
	if reg == nil {
		reg = models.Default()
	}
	return &ModelsHandler{registry: reg}
}

// List handles GET /api/models?category=&id=. With id it resolves a single
// endpoint the way dispatch would.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		desc, err := h.registry.Describe(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "Unsupported model: "+id)
			return
		}
		writeJSON(w, http.StatusOK, desc)
		return
	}

	category := models.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "category must be image, video, audio or voiceover")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  h.registry.List(category),
		"presets": h.registry.Presets(),
	})
}
