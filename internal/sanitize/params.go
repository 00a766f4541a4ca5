package sanitize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/directorchair/directorchair/internal/models"
)

// Kind is the expected shape of a known parameter.
type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "integer"
	KindFloat    Kind = "number"
	KindBool     Kind = "boolean"
	KindObject   Kind = "object"
	KindDuration Kind = "duration"
)

// FieldError reports a known parameter whose value cannot be read as its kind.
type FieldError struct {
	Field string
	Want  Kind
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Invalid value for %s: expected %s", e.Field, e.Want)
}

type Schema map[string]Kind

var commonSchema = Schema{
	"prompt":                KindString,
	"negative_prompt":       KindString,
	"seed":                  KindInt,
	"num_images":            KindInt,
	"num_inference_steps":   KindInt,
	"guidance_scale":        KindFloat,
	"image_url":             KindString,
	"sync_mode":             KindBool,
	"enable_safety_checker": KindBool,
}

var categorySchemas = map[models.Category]Schema{
	models.CategoryImage: {
		"aspect_ratio":          KindString,
		"output_format":         KindString,
		"style":                 KindString,
		"raw":                   KindBool,
		"image_prompt_strength": KindFloat,
		"style_strength":        KindFloat,
		"style_image_url":       KindString,
		"style_reference_url":   KindString,
	},
	models.CategoryVideo: {
		"aspect_ratio":     KindString,
		"duration":         KindDuration,
		"resolution":       KindString,
		"cfg_scale":        KindFloat,
		"prompt_optimizer": KindBool,
		"loop":             KindBool,
		"generate_audio":   KindBool,
		"audio":            KindBool,
		"video_url":        KindString,
		"end_image_url":    KindString,
	},
	models.CategoryAudio: {
		"seconds_total": KindInt,
		"steps":         KindInt,
		"duration":      KindDuration,
		"audio_url":     KindString,
		"video_url":     KindString,
	},
	models.CategoryVoiceover: {
		"text":             KindString,
		"voice":            KindString,
		"voice_id":         KindString,
		"voice_setting":    KindObject,
		"speed":            KindFloat,
		"stability":        KindFloat,
		"similarity_boost": KindFloat,
		"audio_url":        KindString,
		"ref_audio_url":    KindString,
		"gen_text":         KindString,
	},
}

// SchemaFor returns the known parameters of a category, common ones included.
func SchemaFor(category models.Category) Schema {
	out := make(Schema, len(commonSchema)+len(categorySchemas[category]))
	for k, v := range commonSchema {
		out[k] = v
	}
	for k, v := range categorySchemas[category] {
		out[k] = v
	}
	return out
}

// ValidateParams checks every known key of bag against the category schema.
// Unknown keys and nil values are ignored.
func ValidateParams(category models.Category, bag map[string]any) error {
	schema := SchemaFor(category)
	for key, v := range bag {
		kind, known := schema[key]
		if !known || v == nil {
			continue
		}
		if !accepts(kind, v) {
			return &FieldError{Field: key, Want: kind}
		}
	}
	return nil
}

func accepts(kind Kind, v any) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		case string:
			_, err := strconv.Atoi(strings.TrimSpace(n))
			return err == nil
		}
	case KindFloat:
		switch n := v.(type) {
		case int, int64, float64:
			return true
		case string:
			_, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			return err == nil
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return true
		case string:
			_, err := strconv.ParseBool(strings.TrimSpace(b))
			return err == nil
		}
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindDuration:
		switch v.(type) {
		case string, int, int64, float64:
			return true
		}
	}
	return false
}
