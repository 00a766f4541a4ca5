package dispatch

import "strings"

// Request is a generation call after the body has been flattened.
type Request struct {
	Model        string
	Prompt       string
	GenerationID string
	Params       map[string]any
}

var modelKeys = []string{"model", "endpoint", "endpointId"}

var generationIDKeys = []string{"generationId", "generation_id", "callbackId"}

// controlKeys never reach the provider.
var controlKeys = map[string]bool{
	"model":         true,
	"endpoint":      true,
	"endpointId":    true,
	"prompt":        true,
	"generationId":  true,
	"generation_id": true,
	"callbackId":    true,
	"input":         true,
	"parameters":    true,
}

// ParseRequest builds a Request from a decoded JSON body. Keys nested under
// "input" and then "parameters" are spread first; explicit top-level keys win.
func ParseRequest(body map[string]any) Request {
	req := Request{Params: make(map[string]any)}

	for _, nested := range []string{"input", "parameters"} {
		m, ok := body[nested].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range m {
			req.Params[k] = v
		}
	}
	for k, v := range body {
		if !controlKeys[k] {
			req.Params[k] = v
		}
	}

	req.Model = firstString(body, modelKeys...)
	req.GenerationID = firstString(body, generationIDKeys...)
	if p, ok := body["prompt"].(string); ok {
		req.Prompt = p
	} else if p, ok := req.Params["prompt"].(string); ok {
		req.Prompt = p
	}
	delete(req.Params, "prompt")
	return req
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// input assembles the provider payload: params plus the prompt when set.
func (r Request) input() map[string]any {
	out := make(map[string]any, len(r.Params)+1)
	for k, v := range r.Params {
		out[k] = v
	}
	if strings.TrimSpace(r.Prompt) != "" {
		out["prompt"] = r.Prompt
	}
	return out
}
