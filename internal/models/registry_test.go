package models

import (
	"errors"
	"strings"
	"testing"
)

var subscribeMarkers = []string{
	"veo3", "minimax", "hunyuan", "kling", "luma-dream-machine/ray-2", "pixverse", "training",
}

func expectSubscribe(id string) bool {
	for _, m := range subscribeMarkers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return false
}

func TestCatalogModeMatchesQueueFamilies(t *testing.T) {
	reg := Default()
	for _, d := range reg.List("") {
		want := ModeRun
		if expectSubscribe(d.EndpointID) {
			want = ModeSubscribe
		}
		if d.Mode != want {
			t.Errorf("%s: mode = %s, want %s", d.EndpointID, d.Mode, want)
		}
	}
}

func TestDescribeByFamilyPrefix(t *testing.T) {
	reg := Default()
	tests := []struct {
		id       string
		family   string
		category Category
		mode     Mode
	}{
		{"fal-ai/kling-video/v1.6/pro/image-to-video", "kling", CategoryVideo, ModeSubscribe},
		{"fal-ai/veo3/fast/image-to-video", "veo3", CategoryVideo, ModeSubscribe},
		{"fal-ai/luma-dream-machine/ray-2-flash/image-to-video", "luma-ray-2", CategoryVideo, ModeSubscribe},
		{"fal-ai/minimax/speech-02-turbo", "minimax-speech", CategoryVoiceover, ModeSubscribe},
		{"fal-ai/minimax/video-01-live", "minimax-video", CategoryVideo, ModeSubscribe},
		{"fal-ai/hunyuan-video-lora-training", "lora-training", CategoryImage, ModeSubscribe},
		{"fal-ai/flux-pro/v1.1-ultra/redux", "flux-pro", CategoryImage, ModeRun},
		{"fal-ai/flux/krea", "flux", CategoryImage, ModeRun},
		{"fal-ai/elevenlabs/tts/turbo-v2.5", "elevenlabs", CategoryVoiceover, ModeRun},
		{"fal-ai/minimax/image-01", "minimax-image", CategoryImage, ModeSubscribe},
		{"fal-ai/minimax-music", "minimax-music", CategoryAudio, ModeSubscribe},
		{"fal-ai/minimax/preview/video-02", "minimax", CategoryVideo, ModeSubscribe},
		{"partner/minimax-hosted", "minimax", CategoryVideo, ModeSubscribe},
		{"fal-ai/wan-lora-training", "lora-training", CategoryImage, ModeSubscribe},
		{"fal-ai/flux-kontext-lora-trainer", "flux", CategoryImage, ModeSubscribe},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := reg.Describe(tt.id)
			if err != nil {
				t.Fatalf("Describe: %v", err)
			}
			if d.Family != tt.family || d.Category != tt.category || d.Mode != tt.mode {
				t.Errorf("got %s/%s/%s, want %s/%s/%s", d.Family, d.Category, d.Mode, tt.family, tt.category, tt.mode)
			}
			if d.EndpointID != tt.id {
				t.Errorf("endpoint id rewritten to %s", d.EndpointID)
			}
		})
	}
}

func TestDescribeCatalogEntryCarriesCapabilities(t *testing.T) {
	d, err := Default().Describe("fal-ai/flux-pro/v1.1-ultra")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Capabilities.SupportsStyleReference || d.Capabilities.MaxStyleStrength != 1 {
		t.Errorf("unexpected capabilities %+v", d.Capabilities)
	}
	if d.Name != "FLUX1.1 [pro] ultra" {
		t.Errorf("name = %q", d.Name)
	}
}

func TestDescribeAlias(t *testing.T) {
	d, err := Default().Describe("flux-schnell")
	if err != nil {
		t.Fatal(err)
	}
	if d.EndpointID != "fal-ai/flux/schnell" {
		t.Errorf("alias resolved to %s", d.EndpointID)
	}
}

func TestDescribeUnknown(t *testing.T) {
	for _, id := range []string{"", "   ", "openai/dall-e-3", "fal-ai/unknown-thing"} {
		if _, err := Default().Describe(id); !errors.Is(err, ErrUnknownModel) {
			t.Errorf("Describe(%q) err = %v, want ErrUnknownModel", id, err)
		}
	}
}

func TestListByCategory(t *testing.T) {
	voices := Default().List(CategoryVoiceover)
	if len(voices) == 0 {
		t.Fatal("expected voiceover models")
	}
	for _, d := range voices {
		if d.Category != CategoryVoiceover {
			t.Errorf("%s listed under voiceover with category %s", d.EndpointID, d.Category)
		}
	}
}

func TestPresetsResolve(t *testing.T) {
	reg := Default()
	for _, slug := range []string{
		"veo3", "flux-pro", "kling", "luma/ray2-flash", "minimax-hailuo",
		"minimax-tts", "minimax-voice-clone", "elevenlabs-tts", "audio",
	} {
		p, ok := reg.LookupPreset(slug)
		if !ok {
			t.Errorf("preset %s missing", slug)
			continue
		}
		if len(p.Required) == 0 {
			t.Errorf("preset %s has no required fields", slug)
		}
	}
	if _, ok := reg.LookupPreset("nope"); ok {
		t.Error("unexpected preset for unknown slug")
	}
}

func TestNewRegistryRejectsBadTables(t *testing.T) {
	fam := []Family{{Name: "x", Prefixes: []string{"x/"}, Category: CategoryImage, Mode: ModeRun}}

	if _, err := NewRegistry(fam, []Entry{{EndpointID: "y/1", Family: "y"}}, nil, nil); err == nil {
		t.Error("expected error for entry with unknown family")
	}
	if _, err := NewRegistry([]Family{{Name: "x", Category: "pictures", Mode: ModeRun}}, nil, nil, nil); err == nil {
		t.Error("expected error for invalid category")
	}
	if _, err := NewRegistry(fam, nil, map[string]string{"short": "x/missing"}, nil); err == nil {
		t.Error("expected error for dangling alias")
	}
	if _, err := NewRegistry(fam, nil, nil, []Preset{{Slug: "p", EndpointID: "z/1"}}); err == nil {
		t.Error("expected error for preset on unknown endpoint")
	}
}

func TestFieldLabel(t *testing.T) {
	if FieldLabel("image_url") != "Image URL" {
		t.Errorf("got %q", FieldLabel("image_url"))
	}
	if FieldLabel("seed") != "seed" {
		t.Errorf("got %q", FieldLabel("seed"))
	}
}
