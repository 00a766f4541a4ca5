package models

// Preset binds a fixed generation route to one endpoint plus the defaults
// that route applies before dispatch.
type Preset struct {
	Slug       string         `json:"slug"`
	EndpointID string         `json:"endpointId"`
	Required   []string       `json:"required"`
	Defaults   map[string]any `json:"defaults"`
}

var builtinPresets = []Preset{
	{
		Slug:       "veo3",
		EndpointID: "fal-ai/veo3",
		Required:   []string{"prompt"},
		Defaults: map[string]any{
			"aspect_ratio":   "16:9",
			"duration":       "8s",
			"generate_audio": true,
		},
	},
	{
		Slug:       "flux-pro",
		EndpointID: "fal-ai/flux-pro/v1.1-ultra",
		Required:   []string{"prompt"},
		Defaults: map[string]any{
			"aspect_ratio":          "16:9",
			"num_images":            1,
			"enable_safety_checker": true,
			"safety_tolerance":      "2",
			"output_format":         "jpeg",
		},
	},
	{
		Slug:       "kling",
		EndpointID: "fal-ai/kling-video/v2.1/master/image-to-video",
		Required:   []string{"prompt", "image_url"},
		Defaults: map[string]any{
			"duration":        "5",
			"negative_prompt": "blur, distort, and low quality",
			"cfg_scale":       0.5,
		},
	},
	{
		Slug:       "luma/ray2-flash",
		EndpointID: "fal-ai/luma-dream-machine/ray-2-flash",
		Required:   []string{"prompt"},
		Defaults: map[string]any{
			"aspect_ratio": "16:9",
			"resolution":   "540p",
			"duration":     "5s",
			"loop":         false,
		},
	},
	{
		Slug:       "minimax-hailuo",
		EndpointID: "fal-ai/minimax/hailuo-02/standard/image-to-video",
		Required:   []string{"prompt", "image_url"},
		Defaults: map[string]any{
			"duration":         "6",
			"prompt_optimizer": true,
		},
	},
	{
		Slug:       "minimax-tts",
		EndpointID: "fal-ai/minimax/speech-02-hd",
		Required:   []string{"text"},
		Defaults: map[string]any{
			"voice_setting": map[string]any{
				"voice_id":              "Wise_Woman",
				"speed":                 1,
				"vol":                   1,
				"pitch":                 0,
				"english_normalization": false,
			},
		},
	},
	{
		Slug:       "minimax-voice-clone",
		EndpointID: "fal-ai/minimax/voice-clone",
		Required:   []string{"audio_url"},
		Defaults: map[string]any{
			"noise_reduction":           false,
			"need_volume_normalization": false,
		},
	},
	{
		Slug:       "elevenlabs-tts",
		EndpointID: "fal-ai/elevenlabs/tts/multilingual-v2",
		Required:   []string{"text", "voice"},
		Defaults: map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
			"speed":            1,
		},
	},
	{
		Slug:       "audio",
		EndpointID: "fal-ai/stable-audio",
		Required:   []string{"prompt"},
		Defaults: map[string]any{
			"seconds_total": 30,
			"steps":         100,
		},
	},
}

var fieldLabels = map[string]string{
	"prompt":    "Prompt",
	"text":      "Text",
	"voice":     "Voice",
	"image_url": "Image URL",
	"audio_url": "Audio URL",
	"video_url": "Video URL",
}

// FieldLabel is the human name used in "<label> is required" messages.
func FieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}
