package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

var startTime = time.Now()

// AppVersion is set from main at startup via ldflags.
var AppVersion = "dev"

// Pinger checks a dependency. *database.DB satisfies it.
type Pinger interface {
	Ping() error
}

type SystemHandler struct {
	db        Pinger
	fal       configured
	luma      configured
	anthropic configured
	tracked   func() int
	streams   func() int
}

type SystemDeps struct {
	DB        Pinger
	Fal       configured
	Luma      configured
	Anthropic configured
	// Tracked reports queue jobs being polled, Streams open SSE streams.
	Tracked func() int
	Streams func() int
}

func NewSystemHandler(deps SystemDeps) *SystemHandler {
	return &SystemHandler{
		db:        deps.DB,
		fal:       deps.Fal,
		luma:      deps.Luma,
		anthropic: deps.Anthropic,
		tracked:   deps.Tracked,
		streams:   deps.Streams,
	}
}

// Health handles GET /api/health. It answers 503 only when the media index
// is unreachable; missing provider keys are reported, not fatal.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	resp := map[string]interface{}{
		"status":     status,
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"uptime":     formatDuration(time.Since(startTime)),
		"providers": map[string]bool{
			"fal":       isConfigured(h.fal),
			"luma":      isConfigured(h.luma),
			"anthropic": isConfigured(h.anthropic),
		},
	}
	if h.tracked != nil {
		resp["queue_jobs"] = h.tracked()
	}
	if h.streams != nil {
		resp["sse_streams"] = h.streams()
	}
	writeJSON(w, code, resp)
}

func isConfigured(c configured) bool {
	return c != nil && c.IsConfigured()
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
