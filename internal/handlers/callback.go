package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/relay"
	"github.com/directorchair/directorchair/internal/websocket"
)

const keepAliveInterval = 25 * time.Second

// Publisher fans callback payloads out to websocket subscribers.
type Publisher interface {
	BroadcastToTopic(topic string, msg websocket.Message)
}

// CallbackHandler relays provider webhooks to the browser tab waiting on
// the matching generation id.
type CallbackHandler struct {
	relay *relay.Registry
	pub   Publisher
	log   logger.Scoped
}

func NewCallbackHandler(reg *relay.Registry, pub Publisher) *CallbackHandler {
	return &CallbackHandler{relay: reg, pub: pub, log: logger.Tag("callback")}
}

// Subscribe handles GET /api/callback?id=<generationId> and holds an SSE
// stream open until a terminal frame, client disconnect or eviction.
func (h *CallbackHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Registered before the headers go out so a webhook racing the first
	// flush still finds the stream.
	conn := h.relay.Open(id)
	defer h.relay.Cancel(conn)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	h.log.Debug("stream opened for %s", id)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug("stream for %s closed by client", id)
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case frame, open := <-conn.Frames():
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

// Push handles POST /api/callback. It always answers 200: delivery is best
// effort and a missing stream is not the caller's fault.
func (h *CallbackHandler) Push(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("unreadable callback body: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "delivered": false})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.log.Warn("callback body is not a JSON object: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "delivered": false})
		return
	}

	id := callbackID(payload, r)
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "delivered": false})
		return
	}

	// SSE data lines cannot carry raw newlines.
	var frame bytes.Buffer
	if err := json.Compact(&frame, raw); err != nil {
		frame.Reset()
		frame.Write(raw)
	}

	state, _ := payload["state"].(string)
	status, _ := payload["status"].(string)
	terminal := relay.IsTerminal(state) || relay.IsTerminal(status)

	delivered := h.relay.Deliver(id, frame.Bytes(), terminal)
	if !delivered {
		h.log.Debug("no open stream for %s, dropped callback", id)
	}
	if h.pub != nil {
		h.pub.BroadcastToTopic(id, websocket.Message{Type: "generation_callback", Payload: frame.Bytes()})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "delivered": delivered})
}

// callbackID prefers the body id, then the webhook query id, then the
// provider request id.
func callbackID(payload map[string]any, r *http.Request) string {
	if id, _ := payload["id"].(string); id != "" {
		return id
	}
	if id := r.URL.Query().Get("id"); id != "" {
		return id
	}
	id, _ := payload["request_id"].(string)
	return id
}
