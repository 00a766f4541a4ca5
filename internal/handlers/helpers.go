package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/directorchair/directorchair/internal/dispatch"
)

// maxJSONBody caps generation request bodies. Inline base64 inputs can be
// several megabytes.
const maxJSONBody = 16 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}

// writeResult answers with the generation envelope.
func writeResult(w http.ResponseWriter, status int, res dispatch.GenerationResult) {
	writeJSON(w, status, res)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeResult(w, status, dispatch.GenerationResult{Error: &message, Data: json.RawMessage("null")})
}

// decodeBody reads a JSON object. An empty body decodes to an empty map.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.New("Invalid JSON body")
	}
	return body, nil
}

// validateImageMagicBytes checks that the leading bytes match the declared
// image MIME type.
func validateImageMagicBytes(head []byte, mimeType string) bool {
	n := len(head)
	switch mimeType {
	case "image/png":
		return n >= 4 && head[0] == 0x89 && head[1] == 0x50 && head[2] == 0x4E && head[3] == 0x47
	case "image/jpeg", "image/jpg":
		return n >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF
	case "image/webp":
		return n >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WEBP"
	case "image/gif":
		return n >= 6 && (string(head[0:6]) == "GIF87a" || string(head[0:6]) == "GIF89a")
	}
	return true
}
