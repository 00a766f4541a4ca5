// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	Generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "directorchair_generations_total",
		Help: "Generation requests by category, invocation mode and outcome status code.",
	}, []string{"category", "mode", "status"})

	GenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "directorchair_generation_duration_seconds",
		Help:    "Wall time from dispatch to normalized result.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"category", "mode"})

	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "directorchair_upstream_requests_total",
		Help: "HTTP calls made to generation providers.",
	}, []string{"provider", "method", "code"})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "directorchair_upstream_request_duration_seconds",
		Help:    "Latency of individual provider HTTP calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	PollAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "directorchair_poll_attempts_total",
		Help: "Status checks issued while waiting on queued jobs.",
	}, []string{"provider"})

	InflightJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "directorchair_inflight_queue_jobs",
		Help: "Queue jobs currently being polled.",
	})

	SSEConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "directorchair_sse_connections",
		Help: "Open callback streams waiting for a webhook.",
	})

	SSEFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "directorchair_sse_frames_total",
		Help: "Callback frames by delivery result (delivered, dropped, orphaned).",
	}, []string{"result"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "directorchair_uploads_total",
		Help: "Upload attempts by route and outcome.",
	}, []string{"route", "outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Generations,
		GenerationDuration,
		UpstreamRequests,
		UpstreamDuration,
		PollAttempts,
		InflightJobs,
		SSEConnections,
		SSEFrames,
		Uploads,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveUpstream records one provider HTTP call.
func ObserveUpstream(provider, method string, code int, took time.Duration) {
	UpstreamRequests.WithLabelValues(provider, method, strconv.Itoa(code)).Inc()
	UpstreamDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// ObserveGeneration records a finished dispatch.
func ObserveGeneration(category, mode string, status int, took time.Duration) {
	Generations.WithLabelValues(category, mode, strconv.Itoa(status)).Inc()
	GenerationDuration.WithLabelValues(category, mode).Observe(took.Seconds())
}
