// Package sanitize normalizes caller-supplied generation parameters into the
// shape each provider family expects.
package sanitize

import (
	"strconv"
	"strings"

	"github.com/directorchair/directorchair/internal/models"
)

type rule func(in map[string]any)

var familyRules = map[string][]rule{
	"flux-pro": {
		rename("style_image_url", "image_url"),
		rename("style_reference_url", "image_url"),
		rename("style_strength", "image_prompt_strength"),
		toString("safety_tolerance"),
	},
	"minimax-video": {
		rename("text", "prompt"),
		stripDurationUnit,
	},
	"veo3": {
		rename("audio", "generate_audio"),
		toBool("generate_audio"),
		ensureDurationUnit,
	},
	"luma-ray-2": {
		stripDurationUnit,
		toBool("loop"),
		lower("resolution"),
	},
	"kling":          {stripDurationUnit},
	"pixverse":       {stripDurationUnit},
	"elevenlabs":     {rename("prompt", "text")},
	"f5-tts":         {rename("prompt", "text")},
	"minimax-speech": {rename("prompt", "text")},
	"playht": {
		rename("prompt", "text"),
		rename("voice_id", "voice"),
	},
}

var trimmedFields = []string{"prompt", "text", "negative_prompt", "gen_text"}

var intFields = []string{"num_inference_steps", "num_images", "seed"}

var floatFields = []string{"guidance_scale", "cfg_scale"}

// Sanitize returns a cleaned copy of raw for the descriptor's family. The
// input map is never modified. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(desc models.Descriptor, raw map[string]any) map[string]any {
	out := dropNil(raw)

	for _, r := range familyRules[desc.Family] {
		r(out)
	}

	for _, k := range trimmedFields {
		if s, ok := out[k].(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}
	for _, k := range intFields {
		if s, ok := out[k].(string); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				out[k] = n
			}
		}
	}
	for _, k := range floatFields {
		if s, ok := out[k].(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}

// dropNil deep-copies nested objects, leaving out nil values at every level.
func dropNil(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNil(val)
		default:
			out[k] = v
		}
	}
	return out
}

// rename moves from to to unless to is already set. The source key is
// always removed.
func rename(from, to string) rule {
	return func(in map[string]any) {
		v, ok := in[from]
		if !ok {
			return
		}
		delete(in, from)
		if _, taken := in[to]; !taken {
			in[to] = v
		}
	}
}

func toString(key string) rule {
	return func(in map[string]any) {
		switch v := in[key].(type) {
		case float64:
			in[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			in[key] = strconv.Itoa(v)
		}
	}
}

func toBool(key string) rule {
	return func(in map[string]any) {
		s, ok := in[key].(string)
		if !ok {
			return
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			in[key] = b
		}
	}
}

func lower(key string) rule {
	return func(in map[string]any) {
		if s, ok := in[key].(string); ok {
			in[key] = strings.ToLower(s)
		}
	}
}

// stripDurationUnit turns "6s" into "6". Numbers pass through.
func stripDurationUnit(in map[string]any) {
	s, ok := in["duration"].(string)
	if !ok {
		return
	}
	in["duration"] = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "s"))
}

// ensureDurationUnit turns 8 or "8" into "8s".
func ensureDurationUnit(in map[string]any) {
	switch v := in["duration"].(type) {
	case string:
		v = strings.TrimSpace(v)
		if isDigits(v) {
			in["duration"] = v + "s"
		} else {
			in["duration"] = v
		}
	case float64:
		in["duration"] = strconv.FormatFloat(v, 'f', -1, 64) + "s"
	case int:
		in["duration"] = strconv.Itoa(v) + "s"
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ApplyDefaults returns input layered over defaults. Nested objects are
// merged key by key; caller values always win. Neither argument is modified.
func ApplyDefaults(input, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(input))
	for k, v := range defaults {
		if m, ok := v.(map[string]any); ok {
			out[k] = ApplyDefaults(nil, m)
			continue
		}
		out[k] = v
	}
	for k, v := range input {
		inner, isMap := v.(map[string]any)
		base, baseIsMap := out[k].(map[string]any)
		if isMap && baseIsMap {
			out[k] = ApplyDefaults(inner, base)
			continue
		}
		if isMap {
			out[k] = ApplyDefaults(inner, nil)
			continue
		}
		out[k] = v
	}
	return out
}
