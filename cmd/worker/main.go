package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"clipforge/internal/analysis"
	"clipforge/internal/config"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/metrics"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
	"clipforge/pkg/models"
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

	engineClient := engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.RequestTimeout)
	analysisClient := analysis.NewClient(cfg.Analysis.Endpoint, cfg.Analysis.APIKey, cfg.Analysis.Model)

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	metricsServer := metrics.NewServer(9091)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.ErrorWithErr("metrics server stopped", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// Each queued request gets a fresh workflow: the worker runs the whole
	// pipeline and logs the outcome, it holds no session state.
	handler := func(req *models.ProcessRequest) error {
		wlog := logger.WithSessionID(req.SessionID)
		wlog.Info("processing queued request")

		wf := workflow.NewProcessing(workflow.Config{
			Ingestor:     engineClient,
			Transcriber:  engineClient,
			Analyzer:     analysisClient,
			Logger:       wlog,
			StageTimeout: cfg.Pipeline.StageTimeout,
			Language:     req.Language,
		})

		if err := wf.SubmitSourceURL(req.SourceURL); err != nil {
			// A bad URL never becomes processable; don't requeue.
			wlog.ErrorWithErr("rejecting unprocessable request", err)
			return nil
		}

		if err := wf.Run(ctx); err != nil {
			wlog.ErrorWithErr("pipeline run failed", err)
			return err
		}

		state := wf.State()
		wlog.Infof("pipeline complete: %d candidate clips", len(state.Analysis.Clips))
		return nil
	}

	logger.Info("Worker started, waiting for process requests...")
	if err := q.ConsumeProcessRequests(ctx, handler); err != nil {
		logger.Fatalf("Failed to consume process requests: %v", err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	metricsServer.Shutdown(shutdownCtx)

	logger.Info("Worker stopped")
}
