package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clipforge/internal/analysis"
	"clipforge/internal/cache"
	"clipforge/internal/clips"
	"clipforge/internal/config"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/session"
	"clipforge/internal/storage"
	"clipforge/internal/tracing"
	"clipforge/internal/webhook"
	"clipforge/internal/workflow"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer("clipforge-api", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.ErrorWithErr("failed to initialize tracer", err)
		} else {
			defer closer.Close()
		}
	}

	engineClient := engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.RequestTimeout)
	analysisClient := analysis.NewClient(cfg.Analysis.Endpoint, cfg.Analysis.APIKey, cfg.Analysis.Model)
	renderClient := render.NewClient(cfg.Renderer.BaseURL, cfg.Renderer.CompositionID,
		render.WithPollInterval(cfg.Renderer.PollInterval),
		render.WithMaxPolls(cfg.Renderer.MaxPolls),
	)

	renderCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer renderCache.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	sessions := session.NewManager(
		workflow.Config{
			Ingestor:     engineClient,
			Transcriber:  engineClient,
			Analyzer:     analysisClient,
			Logger:       logger,
			StageTimeout: cfg.Pipeline.StageTimeout,
			Language:     cfg.Pipeline.Language,
		},
		workflow.SubtitleConfig{
			Ingestor:     engineClient,
			Transcriber:  engineClient,
			Renderer:     renderClient,
			Logger:       logger,
			StageTimeout: cfg.Pipeline.StageTimeout,
			Language:     cfg.Pipeline.Language,
		},
	)

	api := &API{
		sessions:  sessions,
		generator: clips.NewGenerator(engineClient, logger),
		renderer:  renderClient,
		cache:     renderCache,
		queue:     q,
		storage:   stor,
		notifier:  webhook.NewNotifier(logger),
		log:       logger,
	}

	router := setupRouter(api, cfg.Server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
