package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/storage"
)

type MediaHandler struct {
	index MediaIndex
	store *storage.FileStore
}

func NewMediaHandler(index MediaIndex, store *storage.FileStore) *MediaHandler {
	return &MediaHandler{index: index, store: store}
}

type mediaItem struct {
	database.Media
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (h *MediaHandler) item(m database.Media) mediaItem {
	it := mediaItem{Media: m}
	if m.ThumbnailKey != "" {
		it.ThumbnailURL = h.store.URL(m.ThumbnailKey)
	}
	return it
}

// List handles GET /api/media?page=&per_page=&type=&q=.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	mediaType := strings.ToLower(q.Get("type"))
	switch mediaType {
	case "", "image", "audio", "video":
	default:
		writeError(w, http.StatusBadRequest, "type must be image, audio or video")
		return
	}

	rows, total, err := h.index.ListMedia(database.MediaFilter{
		MediaType: mediaType,
		Query:     q.Get("q"),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query media")
		return
	}

	items := make([]mediaItem, 0, len(rows))
	for _, m := range rows {
		items = append(items, h.item(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.index.GetMedia(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrMediaNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	writeJSON(w, http.StatusOK, h.item(*m))
}

// Delete removes the stored file, its thumbnail and the index record.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.index.GetMedia(id)
	if err != nil {
		if errors.Is(err, database.ErrMediaNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load media")
		return
	}

	for _, key := range []string{m.StorageKey, m.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := h.store.Remove(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to remove file")
			return
		}
	}
	if err := h.index.DeleteMedia(id); err != nil && !errors.Is(err, database.ErrMediaNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ServeUpload handles GET /api/uploads/*. Keys escaping the upload root are
// rejected.
func (h *MediaHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	f, info, err := h.store.Open(key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidKey):
			writeError(w, http.StatusBadRequest, "invalid path")
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to open file")
		}
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", storage.ContentTypeFor(info.Name()))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
