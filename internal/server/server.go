package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/directorchair/directorchair/internal/anthropic"
	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/dispatch"
	"github.com/directorchair/directorchair/internal/fal"
	"github.com/directorchair/directorchair/internal/handlers"
	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/luma"
	"github.com/directorchair/directorchair/internal/metrics"
	mw "github.com/directorchair/directorchair/internal/middleware"
	"github.com/directorchair/directorchair/internal/models"
	"github.com/directorchair/directorchair/internal/relay"
	"github.com/directorchair/directorchair/internal/storage"
	ws "github.com/directorchair/directorchair/internal/websocket"
)

type Server struct {
	Router     *chi.Mux
	Dispatcher *dispatch.Dispatcher
	Relay      *relay.Registry
	WSHub      *ws.Hub
}

type Config struct {
	DB        *database.DB
	Store     *storage.FileStore
	Registry  *models.Registry
	Fal       *fal.Client
	Luma      *luma.Client
	Anthropic *anthropic.Client
	Relay     *relay.Registry
	// Invoker overrides Fal as the generation backend.
	Invoker dispatch.Invoker

	GenerateTimeout time.Duration
	PublicBaseURL   string
	CORSOrigins     []string
	// GenerateRateLimit caps generation calls per client per minute.
	// Zero disables the limit.
	GenerateRateLimit int
}

func New(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = models.Default()
	}
	if cfg.Relay == nil {
		cfg.Relay = relay.NewRegistry(relay.DefaultTTL)
	}
	if cfg.Fal == nil {
		cfg.Fal = fal.NewClient("")
	}
	if cfg.Luma == nil {
		cfg.Luma = luma.NewClient("", "", luma.DefaultPolicy)
	}
	if cfg.Anthropic == nil {
		cfg.Anthropic = anthropic.NewClient("", "")
	}
	invoker := cfg.Invoker
	if invoker == nil {
		invoker = cfg.Fal
	}

	s := &Server{
		Router: chi.NewRouter(),
		Relay:  cfg.Relay,
		WSHub:  ws.NewHub(cfg.CORSOrigins),
	}
	s.Dispatcher = dispatch.New(dispatch.Config{
		Registry:      cfg.Registry,
		Invoker:       invoker,
		Timeout:       cfg.GenerateTimeout,
		PublicBaseURL: cfg.PublicBaseURL,
		OnProgress:    s.publishProgress,
	})

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes(cfg)

	return s
}

func (s *Server) setupMiddleware(origins []string) {
	s.Router.Use(chiMiddleware.RealIP)
	s.Router.Use(mw.RequestID)
	s.Router.Use(mw.SecurityHeaders)
	s.Router.Use(mw.Logger)
	s.Router.Use(mw.CORS(origins))
	s.Router.Use(chiMiddleware.Recoverer)
}

func (s *Server) setupRoutes(cfg Config) {
	generateHandler := handlers.NewGenerateHandler(s.Dispatcher, cfg.Registry)
	falHandler := handlers.NewFalHandler(s.Dispatcher, cfg.Fal)
	callbackHandler := handlers.NewCallbackHandler(s.Relay, s.WSHub)
	modelsHandler := handlers.NewModelsHandler(cfg.Registry)
	lumaHandler := handlers.NewLumaHandler(cfg.Luma)
	claudeHandler := handlers.NewClaudeHandler(cfg.Anthropic)

	deps := handlers.SystemDeps{
		Fal:       cfg.Fal,
		Luma:      cfg.Luma,
		Anthropic: cfg.Anthropic,
		Tracked:   s.Dispatcher.Tracked,
		Streams:   s.Relay.Len,
	}
	var index handlers.MediaIndex
	if cfg.DB != nil {
		deps.DB = cfg.DB
		index = cfg.DB
	}
	systemHandler := handlers.NewSystemHandler(deps)

	s.Router.Handle("/metrics", metrics.Handler())

	s.Router.Route("/api", func(r chi.Router) {
		r.Get("/health", systemHandler.Health)
		r.Get("/models", modelsHandler.List)
		r.Get("/fal/status", falHandler.Status)
		r.Get("/ws", s.WSHub.HandleWS)

		// Every call below spends provider credit.
		r.Group(func(r chi.Router) {
			if cfg.GenerateRateLimit > 0 {
				r.Use(mw.RateLimit(cfg.GenerateRateLimit, time.Minute))
			}
			r.Post("/generate", generateHandler.Generate)
			r.Post("/generate/*", generateHandler.Preset)
			r.Get("/fal", falHandler.Get)
			r.Post("/fal", falHandler.Post)
			r.Post("/luma/generations", lumaHandler.Create)
			r.Post("/claude", claudeHandler.Complete)
		})

		r.Get("/callback", callbackHandler.Subscribe)
		r.Post("/callback", callbackHandler.Push)

		if cfg.Store != nil {
			uploadHandler := handlers.NewUploadHandler(cfg.Store, index)
			mediaHandler := handlers.NewMediaHandler(index, cfg.Store)

			r.Post("/upload", uploadHandler.Upload)
			r.Post("/upload-image", uploadHandler.UploadImage)
			r.Post("/upload-audio", uploadHandler.UploadAudio)
			r.Post("/upload-video", uploadHandler.UploadVideo)
			r.Get("/uploads/*", mediaHandler.ServeUpload)

			if index != nil {
				r.Get("/media", mediaHandler.List)
				r.Get("/media/{id}", mediaHandler.Get)
				r.Delete("/media/{id}", mediaHandler.Delete)
			}
		}
	})

	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"not found"}`))
	})
}

// publishProgress fans dispatch progress out to websocket clients and, for
// queue updates of a known generation, to its SSE stream. These frames are
// informational and never terminal.
func (s *Server) publishProgress(p dispatch.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		logger.Error("Failed to marshal progress: %v", err)
		return
	}
	msg := ws.Message{Type: "generation_" + p.State, Payload: data}
	if p.GenerationID == "" {
		s.WSHub.Broadcast(msg)
		return
	}
	s.WSHub.BroadcastToTopic(p.GenerationID, msg)

	switch p.State {
	case dispatch.StateQueued, dispatch.StateInProgress:
		s.Relay.Deliver(p.GenerationID, data, false)
	}
}
