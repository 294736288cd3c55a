package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/app"
	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/loader"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	raguc "github.com/kailas-cloud/ragchat/internal/usecase/rag"
	"github.com/kailas-cloud/ragchat/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging, "api")
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragchat API server",
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	storage, err := app.OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open corpus index", zap.Error(err))
	}
	defer storage.Close()
	index := storage.Index

	embedders, err := app.BuildEmbedders(cfg.Embedding, storage, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	generator, err := app.BuildGenerator(cfg.Generation, logger)
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", cfg.Generation.Model),
		zap.Bool("query_cache", storage.Cache != nil),
	)

	bootstrapCorpus(ctx, cfg, index, embedders, logger)

	healthSvc := healthuc.New(index, embedders.Base, generator)
	ragSvc := raguc.New(index, embedders.Query, generator)

	server := chiTransport.NewServer(ragSvc, healthSvc, chiTransport.Options{
		DefaultK:     cfg.Corpus.DefaultK,
		StrictErrors: cfg.HTTP.StrictErrors,
	}, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// bootstrapCorpus fills an empty index from the configured sources.
// Failures are logged and the server starts with an empty corpus.
func bootstrapCorpus(
	ctx context.Context,
	cfg config.Config,
	index ingestuc.Index,
	embedders app.Embedders,
	logger *zap.Logger,
) {
	if !app.EmbeddingConfigured(cfg.Embedding) {
		logger.Warn("Embedding provider has no API key, starting with an empty corpus")
		return
	}

	var splitter ingestuc.Splitter
	if cfg.Corpus.ChunkOnBootstrap {
		splitter = loader.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}

	svc := ingestuc.New(index, embedders.Document, splitter, logger).
		WithBatchSize(cfg.Ingest.BatchSize)

	rep, err := svc.Bootstrap(ctx, cfg.Corpus.Paths()...)
	if err != nil {
		logger.Error("Corpus bootstrap failed, starting with an empty corpus", zap.Error(err))
		return
	}
	if rep.Skipped {
		logger.Info("Corpus already populated, bootstrap skipped")
		return
	}
	logger.Info("Corpus loaded",
		zap.String("run_id", rep.RunID),
		zap.Int("documents", rep.Upserted),
		zap.Int("dimension", rep.Dimension),
		zap.Duration("duration", rep.Duration),
	)
}
