package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/metrics"
	"github.com/directorchair/directorchair/internal/storage"
)

// sniffLen is how many leading bytes are inspected for image signatures.
const sniffLen = 12

// MediaIndex records stored uploads. *database.DB satisfies it.
type MediaIndex interface {
	InsertMedia(m *database.Media) error
	GetMedia(id string) (*database.Media, error)
	ListMedia(f database.MediaFilter) ([]database.Media, int, error)
	DeleteMedia(id string) error
}

type UploadHandler struct {
	store *storage.FileStore
	index MediaIndex
	log   logger.Scoped
}

func NewUploadHandler(store *storage.FileStore, index MediaIndex) *UploadHandler {
	return &UploadHandler{store: store, index: index, log: logger.Tag("upload")}
}

// Upload handles POST /api/upload for any supported media kind.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "upload", storage.GeneralLimits, false)
}

// UploadImage handles POST /api/upload-image and also returns a data URL.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "upload-image", storage.ImageLimits, true)
}

func (h *UploadHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "upload-audio", storage.AudioLimits, false)
}

func (h *UploadHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "upload-video", storage.VideoLimits, false)
}

func (h *UploadHandler) handle(w http.ResponseWriter, r *http.Request, route string, limits storage.Limits, withDataURL bool) {
	maxBody := limits.Max() + storage.MB
	if r.ContentLength > maxBody {
		h.reject(w, route, "too_large", (&storage.SizeError{Limit: limits.Max()}).Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	// The form is streamed part by part so nothing but the file itself is
	// written, and never more than the per-kind limit.
	mr, err := r.MultipartReader()
	if err != nil {
		h.reject(w, route, "invalid", "Invalid multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			h.reject(w, route, "too_large", (&storage.SizeError{Limit: limits.Max()}).Error())
		case errors.Is(err, io.EOF):
			h.reject(w, route, "invalid", "No file provided")
		default:
			h.reject(w, route, "invalid", "Invalid multipart form")
		}
		return
	}
	defer part.Close()
	filename := part.FileName()

	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = storage.ContentTypeFor(filename)
	}
	kind, ok := storage.KindOf(mimeType)
	limit, allowed := limits[kind]
	if !ok || !allowed {
		h.reject(w, route, "invalid", fmt.Sprintf("Unsupported file type: %s", mimeType))
		return
	}

	src := bufio.NewReaderSize(part, 4096)
	if kind == storage.KindImage {
		head, _ := src.Peek(sniffLen)
		mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
		if !validateImageMagicBytes(head, mt) {
			h.reject(w, route, "invalid", "File content does not match its image type")
			return
		}
	}

	saved, err := h.store.Save(r.Context(), src, kind, mimeType, limit)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.Is(err, storage.ErrTooLarge) || errors.As(err, &tooBig) {
			h.reject(w, route, "too_large", (&storage.SizeError{Limit: limit}).Error())
			return
		}
		h.log.Error("%s: save failed: %v", route, err)
		metrics.Uploads.WithLabelValues(route, "error").Inc()
		writeError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	media := &database.Media{
		MediaType:    string(kind),
		StorageKey:   saved.Key,
		OriginalName: filename,
		MimeType:     mimeType,
		SizeBytes:    saved.Size,
		URL:          saved.URL,
		Route:        route,
	}
	if kind == storage.KindImage {
		if thumbKey, width, height, err := h.store.Thumbnail(saved.Key); err != nil {
			h.log.Warn("%s: thumbnail for %s failed: %v", route, saved.Key, err)
		} else {
			media.ThumbnailKey, media.Width, media.Height = thumbKey, width, height
		}
	}
	if h.index != nil {
		if err := h.index.InsertMedia(media); err != nil {
			h.log.Warn("%s: index %s failed: %v", route, saved.Key, err)
		}
	}

	resp := map[string]interface{}{
		"success":  true,
		"id":       media.ID,
		"url":      saved.URL,
		"key":      saved.Key,
		"filename": filename,
		"size":     saved.Size,
		"type":     mimeType,
		"kind":     kind,
	}
	if media.ThumbnailKey != "" {
		resp["thumbnailUrl"] = h.store.URL(media.ThumbnailKey)
		resp["width"] = media.Width
		resp["height"] = media.Height
	}
	if withDataURL {
		dataURL, err := h.store.DataURL(saved.Key, mimeType)
		if err != nil {
			h.log.Warn("%s: data url for %s failed: %v", route, saved.Key, err)
		} else {
			resp["dataUrl"] = dataURL
		}
	}

	metrics.Uploads.WithLabelValues(route, "stored").Inc()
	h.log.Info("stored %s (%d bytes) as %s", filename, saved.Size, saved.Key)
	writeJSON(w, http.StatusOK, resp)
}

// nextFilePart skips ordinary form fields up to the "file" part. It returns
// io.EOF when the form has no file.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func (h *UploadHandler) reject(w http.ResponseWriter, route, outcome, message string) {
	h.log.Warn("%s rejected: %s", route, message)
	metrics.Uploads.WithLabelValues(route, outcome).Inc()
	writeError(w, http.StatusBadRequest, message)
}
