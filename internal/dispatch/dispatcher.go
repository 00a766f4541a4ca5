// Package dispatch turns a generation request into a provider call: it
// validates, resolves the model, sanitizes parameters, picks run or queued
// invocation and normalizes the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/directorchair/directorchair/internal/fal"
	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/metrics"
	"github.com/directorchair/directorchair/internal/models"
	"github.com/directorchair/directorchair/internal/sanitize"
)

// Invoker calls the provider. *fal.Client satisfies it.
type Invoker interface {
	Run(ctx context.Context, endpointID string, input map[string]any) (*fal.Result, error)
	Subscribe(ctx context.Context, endpointID string, input map[string]any, opts fal.SubscribeOptions) (*fal.Result, error)
}

// Progress is an informational update about a running generation.
type Progress struct {
	GenerationID string   `json:"generationId,omitempty"`
	RequestID    string   `json:"requestId,omitempty"`
	Model        string   `json:"model"`
	Category     string   `json:"category"`
	State        string   `json:"state"`
	Logs         []string `json:"logs,omitempty"`
	Status       int      `json:"status,omitempty"`
	Error        string   `json:"error,omitempty"`
}

const (
	StateStarted    = "started"
	StateQueued     = "queued"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

type ProgressFunc func(Progress)

type Config struct {
	Registry *models.Registry
	Invoker  Invoker
	// Timeout bounds one generation end to end. Zero means 300s.
	Timeout time.Duration
	// PublicBaseURL enables provider webhooks to /api/callback.
	PublicBaseURL string
	OnProgress    ProgressFunc
}

type Options struct {
	// RequirePrompt rejects requests without a prompt before the model is
	// resolved.
	RequirePrompt bool
}

type Dispatcher struct {
	registry   *models.Registry
	invoker    Invoker
	timeout    time.Duration
	baseURL    string
	onProgress ProgressFunc
	log        logger.Scoped

	mu   sync.Mutex
	jobs map[string]string
}

const DefaultTimeout = 300 * time.Second

func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		registry:   cfg.Registry,
		invoker:    cfg.Invoker,
		timeout:    cfg.Timeout,
		baseURL:    strings.TrimRight(cfg.PublicBaseURL, "/"),
		onProgress: cfg.OnProgress,
		log:        logger.Tag("dispatch"),
		jobs:       make(map[string]string),
	}
	if d.registry == nil {
		d.registry = models.Default()
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	return d
}

// Dispatch runs the full pipeline and always yields an envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, opts Options) (int, GenerationResult) {
	if err := checkRequired(req, opts); err != nil {
		return Normalize(nil, err)
	}

	desc, err := d.registry.Describe(req.Model)
	if err != nil {
		return Normalize(nil, &ValidationError{Field: "model", Message: fmt.Sprintf("Unsupported model: %s", req.Model)})
	}

	input := req.input()
	if err := sanitize.ValidateParams(desc.Category, input); err != nil {
		return Normalize(nil, err)
	}
	input = sanitize.Sanitize(desc, input)
	if ratio, ok := input["aspect_ratio"].(string); ok && !desc.Capabilities.AcceptsAspectRatio(ratio) {
		return Normalize(nil, &ValidationError{
			Field:   "aspect_ratio",
			Message: fmt.Sprintf("Unsupported aspect_ratio %s for %s", ratio, desc.EndpointID),
		})
	}

	start := time.Now()
	d.emit(Progress{GenerationID: req.GenerationID, Model: desc.EndpointID, Category: string(desc.Category), State: StateStarted})
	d.log.Info("%s %s (%s)", desc.Mode, desc.EndpointID, desc.Category)

	result, err := d.invoke(ctx, desc, req.GenerationID, input)
	status, out := Normalize(result, err)

	metrics.ObserveGeneration(string(desc.Category), string(desc.Mode), status, time.Since(start))
	final := Progress{GenerationID: req.GenerationID, Model: desc.EndpointID, Category: string(desc.Category), State: StateCompleted, Status: status}
	if result != nil {
		final.RequestID = result.RequestID
	}
	if err != nil {
		final.State = StateFailed
		final.Error = *out.Error
		d.log.Error("%s failed with %d: %v", desc.EndpointID, status, err)
	}
	d.emit(final)
	return status, out
}

// DispatchPreset validates the preset's own required fields, merges its
// defaults under the body and runs the shared pipeline.
func (d *Dispatcher) DispatchPreset(ctx context.Context, slug string, body map[string]any) (int, GenerationResult) {
	preset, ok := d.registry.LookupPreset(slug)
	if !ok {
		return Normalize(nil, &ValidationError{Field: "route", Message: fmt.Sprintf("Unknown generation route: %s", slug)})
	}

	req := ParseRequest(body)
	flat := req.input()
	for _, field := range preset.Required {
		if isBlank(flat[field]) {
			return Normalize(nil, &ValidationError{Field: field, Message: models.FieldLabel(field) + " is required"})
		}
	}

	merged := sanitize.ApplyDefaults(flat, preset.Defaults)
	prompt, _ := merged["prompt"].(string)
	delete(merged, "prompt")

	return d.Dispatch(ctx, Request{
		Model:        preset.EndpointID,
		Prompt:       prompt,
		GenerationID: req.GenerationID,
		Params:       merged,
	}, Options{})
}

func checkRequired(req Request, opts Options) error {
	noModel := strings.TrimSpace(req.Model) == ""
	noPrompt := opts.RequirePrompt && strings.TrimSpace(req.Prompt) == ""
	switch {
	case noModel && noPrompt:
		return &ValidationError{Field: "model", Message: "Model and Prompt are required"}
	case noModel:
		return &ValidationError{Field: "model", Message: "Model is required"}
	case noPrompt:
		return &ValidationError{Field: "prompt", Message: "Prompt is required"}
	}
	return nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

func (d *Dispatcher) invoke(ctx context.Context, desc models.Descriptor, generationID string, input map[string]any) (*fal.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var result *fal.Result
	var err error
	if desc.Mode == models.ModeSubscribe {
		result, err = d.subscribe(ctx, desc, generationID, input)
	} else {
		result, err = d.invoker.Run(ctx, desc.EndpointID, input)
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{After: d.timeout}
	}
	return result, err
}

func (d *Dispatcher) subscribe(ctx context.Context, desc models.Descriptor, generationID string, input map[string]any) (*fal.Result, error) {
	var requestID string
	defer func() {
		if requestID != "" {
			d.untrack(requestID)
		}
	}()

	return d.invoker.Subscribe(ctx, desc.EndpointID, input, fal.SubscribeOptions{
		WebhookURL: d.webhookURL(generationID),
		OnEnqueue: func(id string) {
			if d.track(id, desc.EndpointID) {
				requestID = id
			}
			d.emit(Progress{GenerationID: generationID, RequestID: id, Model: desc.EndpointID, Category: string(desc.Category), State: StateQueued})
		},
		OnQueueUpdate: func(job fal.QueueJob) {
			lines := make([]string, 0, len(job.Logs))
			for _, l := range job.Logs {
				lines = append(lines, l.Message)
				d.log.Debug("%s %s: %s", desc.EndpointID, job.RequestID, l.Message)
			}
			d.emit(Progress{
				GenerationID: generationID,
				RequestID:    job.RequestID,
				Model:        desc.EndpointID,
				Category:     string(desc.Category),
				State:        StateInProgress,
				Logs:         lines,
			})
		},
	})
}

func (d *Dispatcher) webhookURL(generationID string) string {
	if d.baseURL == "" || generationID == "" {
		return ""
	}
	return d.baseURL + "/api/callback?id=" + url.QueryEscape(generationID)
}

// track registers a queue job. A request id is polled by at most one
// dispatch; a duplicate is logged and left to its first owner.
func (d *Dispatcher) track(requestID, endpointID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if owner, dup := d.jobs[requestID]; dup {
		d.log.Warn("request %s already tracked for %s", requestID, owner)
		return false
	}
	d.jobs[requestID] = endpointID
	return true
}

func (d *Dispatcher) untrack(requestID string) {
	d.mu.Lock()
	delete(d.jobs, requestID)
	d.mu.Unlock()
}

// Tracked reports how many queue jobs are being polled right now.
func (d *Dispatcher) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func (d *Dispatcher) emit(p Progress) {
	if d.onProgress != nil {
		d.onProgress(p)
	}
}
