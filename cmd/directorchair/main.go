package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/directorchair/directorchair/internal/anthropic"
	"github.com/directorchair/directorchair/internal/config"
	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/fal"
	"github.com/directorchair/directorchair/internal/handlers"
	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/luma"
	"github.com/directorchair/directorchair/internal/poll"
	"github.com/directorchair/directorchair/internal/relay"
	"github.com/directorchair/directorchair/internal/scheduler"
	"github.com/directorchair/directorchair/internal/server"
	"github.com/directorchair/directorchair/internal/storage"
)

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println("directorchair " + version)
		os.Exit(0)
	}

	config.LoadDotEnv()
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, cfg.DevMode())
	logger.Banner()

	handlers.AppVersion = version

	db, err := database.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store, err := storage.NewFileStore(cfg.UploadDir, "/api/uploads")
	if err != nil {
		logger.Fatal("Failed to initialize upload storage: %v", err)
	}
	logger.Info("Uploads stored under %s", store.BasePath())

	falClient := fal.NewClient(cfg.FalKey, fal.WithPollPolicy(poll.Policy{Interval: cfg.PollInterval}))
	if !falClient.IsConfigured() {
		logger.Warn("FAL_KEY is not set. Generation routes will fail until it is configured.")
	}
	if cfg.PublicBaseURL == "" {
		logger.Warn("PUBLIC_BASE_URL is not set. Provider webhooks to /api/callback are disabled.")
	}

	relayReg := relay.NewRegistry(cfg.SSETTL)

	srv := server.New(server.Config{
		DB:                db,
		Store:             store,
		Fal:               falClient,
		Luma:              luma.NewClient(cfg.LumaKey, "", luma.DefaultPolicy),
		Anthropic:         anthropic.NewClient(cfg.AnthropicKey, ""),
		Relay:             relayReg,
		GenerateTimeout:   cfg.GenerateTimeout,
		PublicBaseURL:     cfg.PublicBaseURL,
		CORSOrigins:       cfg.CORSOrigins,
		GenerateRateLimit: cfg.GenerateRateLimit,
	})

	// Start WebSocket hub
	go srv.WSHub.Run()
	defer srv.WSHub.Stop()

	sched := scheduler.New()
	if err := sched.AddRelaySweep(relayReg, 30*time.Second); err != nil {
		logger.Fatal("Failed to schedule stream eviction: %v", err)
	}
	if cfg.UploadRetention > 0 {
		if err := sched.AddUploadRetention(db, store, cfg.UploadRetention); err != nil {
			logger.Fatal("Failed to schedule upload retention: %v", err)
		}
		logger.Info("Uploads older than %s will be removed", cfg.UploadRetention)
	}
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	switch cfg.BindAddress {
	case "127.0.0.1", "localhost", "::1":
	default:
		logger.Warn("Binding to %s. Generation routes spend provider credits and have no authentication.", cfg.BindAddress)
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // intentionally zero for SSE and long generations
		IdleTimeout:  120 * time.Second,
	}

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			config.ReloadDotEnv()
			next := config.Load()
			falClient.UpdateAPIKey(next.FalKey)
			logger.Info("Reloaded environment (FAL key configured: %v)", falClient.IsConfigured())
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		logger.Listen(addr, url, cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	<-done
	logger.Shutdown("Shutting down server...")
	signal.Stop(reload)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}

	logger.Bye()
}
