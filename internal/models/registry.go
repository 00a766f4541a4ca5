// Package models describes every generation endpoint the service knows how to
// call: which provider family it belongs to, which media it produces and
// whether it is invoked synchronously or through the provider queue.
package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Category string

const (
	CategoryImage     Category = "image"
	CategoryVideo     Category = "video"
	CategoryAudio     Category = "audio"
	CategoryVoiceover Category = "voiceover"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryImage, CategoryVideo, CategoryAudio, CategoryVoiceover:
		return true
	}
	return false
}

// Mode selects how the provider is called. Run blocks on a single request;
// Subscribe submits to the provider queue and polls until the job settles.
type Mode string

const (
	ModeRun       Mode = "run"
	ModeSubscribe Mode = "subscribe"
)

// Family groups endpoints that share parameter conventions. Prefixes are
// matched against endpoint ids; the longest match wins. Markers match
// anywhere in an id: they resolve ids no prefix covers, and a marker of a
// subscribe family forces queue mode on every id containing it.
type Family struct {
	Name     string
	Prefixes []string
	Markers  []string
	Category Category
	Mode     Mode
}

type Capabilities struct {
	SupportsStylePresets   bool     `json:"supportsStylePresets"`
	SupportsStyleReference bool     `json:"supportsStyleReference"`
	MaxStyleStrength       float64  `json:"maxStyleStrength,omitempty"`
	SupportedAspectRatios  []string `json:"supportedAspectRatios,omitempty"`
}

// AcceptsAspectRatio reports whether ratio is allowed. An empty list
// accepts anything.
func (c Capabilities) AcceptsAspectRatio(ratio string) bool {
	if len(c.SupportedAspectRatios) == 0 {
		return true
	}
	ratio = strings.TrimSpace(ratio)
	for _, r := range c.SupportedAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

type Descriptor struct {
	EndpointID   string       `json:"endpointId"`
	Name         string       `json:"name"`
	Category     Category     `json:"category"`
	Family       string       `json:"family"`
	Mode         Mode         `json:"mode"`
	Capabilities Capabilities `json:"capabilities"`
}

// Entry is a catalog row. Category and mode come from the family.
type Entry struct {
	EndpointID   string
	Name         string
	Family       string
	Capabilities Capabilities
}

var ErrUnknownModel = errors.New("unknown model")

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	families map[string]Family
	prefixes []prefixRule
	markers  []prefixRule
	catalog  map[string]Descriptor
	order    []string
	aliases  map[string]string
	presets  map[string]Preset
}

type prefixRule struct {
	prefix string
	family string
}

func NewRegistry(families []Family, entries []Entry, aliases map[string]string, presets []Preset) (*Registry, error) {
	r := &Registry{
		families: make(map[string]Family, len(families)),
		catalog:  make(map[string]Descriptor, len(entries)),
		aliases:  make(map[string]string, len(aliases)),
		presets:  make(map[string]Preset, len(presets)),
	}

	for _, f := range families {
		if !f.Category.Valid() {
			return nil, fmt.Errorf("family %s: invalid category %q", f.Name, f.Category)
		}
		if f.Mode != ModeRun && f.Mode != ModeSubscribe {
			return nil, fmt.Errorf("family %s: invalid mode %q", f.Name, f.Mode)
		}
		if _, dup := r.families[f.Name]; dup {
			return nil, fmt.Errorf("family %s declared twice", f.Name)
		}
		r.families[f.Name] = f
		for _, p := range f.Prefixes {
			r.prefixes = append(r.prefixes, prefixRule{prefix: p, family: f.Name})
		}
		for _, m := range f.Markers {
			r.markers = append(r.markers, prefixRule{prefix: m, family: f.Name})
		}
	}
	// Longest first so the first hit is the most specific family.
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
	sort.SliceStable(r.markers, func(i, j int) bool {
		return len(r.markers[i].prefix) > len(r.markers[j].prefix)
	})

	for _, e := range entries {
		f, ok := r.families[e.Family]
		if !ok {
			return nil, fmt.Errorf("model %s: unknown family %q", e.EndpointID, e.Family)
		}
		if _, dup := r.catalog[e.EndpointID]; dup {
			return nil, fmt.Errorf("model %s listed twice", e.EndpointID)
		}
		r.catalog[e.EndpointID] = Descriptor{
			EndpointID:   e.EndpointID,
			Name:         e.Name,
			Category:     f.Category,
			Family:       f.Name,
			Mode:         f.Mode,
			Capabilities: e.Capabilities,
		}
		r.order = append(r.order, e.EndpointID)
	}

	for alias, target := range aliases {
		if _, ok := r.catalog[target]; !ok {
			return nil, fmt.Errorf("alias %s points at unknown model %s", alias, target)
		}
		r.aliases[alias] = target
	}

	for _, p := range presets {
		if _, err := r.Describe(p.EndpointID); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Slug, err)
		}
		r.presets[p.Slug] = p
	}

	return r, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(builtinFamilies, builtinCatalog, builtinAliases, builtinPresets)
		if err != nil {
			panic("models: invalid built-in registry: " + err.Error())
		}
		defaultReg = r
	})
	return defaultReg
}

// Describe resolves a model id to its descriptor. Catalog ids and short
// aliases match exactly; any other id is matched by family prefix, so new
// variants of a known family work without a catalog change.
func (r *Registry) Describe(modelID string) (Descriptor, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return Descriptor{}, ErrUnknownModel
	}
	if target, ok := r.aliases[id]; ok {
		id = target
	}
	if d, ok := r.catalog[id]; ok {
		return d, nil
	}
	marked, hasMarker := r.markerFamily(id)
	for _, rule := range r.prefixes {
		if strings.HasPrefix(id, rule.prefix) {
			d := familyDescriptor(id, r.families[rule.family])
			if hasMarker && marked.Mode == ModeSubscribe {
				d.Mode = ModeSubscribe
			}
			return d, nil
		}
	}
	if hasMarker {
		return familyDescriptor(id, marked), nil
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
}

func familyDescriptor(id string, f Family) Descriptor {
	return Descriptor{
		EndpointID: id,
		Name:       id,
		Category:   f.Category,
		Family:     f.Name,
		Mode:       f.Mode,
	}
}

func (r *Registry) markerFamily(id string) (Family, bool) {
	for _, rule := range r.markers {
		if strings.Contains(id, rule.prefix) {
			return r.families[rule.family], true
		}
	}
	return Family{}, false
}

// List returns catalog entries in declaration order. An empty category
// lists everything.
func (r *Registry) List(category Category) []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		d := r.catalog[id]
		if category != "" && d.Category != category {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r *Registry) LookupPreset(slug string) (Preset, bool) {
	p, ok := r.presets[slug]
	return p, ok
}

func (r *Registry) Presets() []Preset {
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
