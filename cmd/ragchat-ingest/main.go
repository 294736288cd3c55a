package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/app"
	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/loader"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	"github.com/kailas-cloud/ragchat/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:      "ragchat-ingest",
		Version:   version.String(),
		Usage:     "Load, chunk, embed and upsert documents into the configured corpus index",
		ArgsUsage: "[path ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Config environment (config/<env>.yaml)",
				Value:   "local",
				Sources: cli.EnvVars("ENV"),
			},
			&cli.BoolFlag{
				Name:  "recreate",
				Usage: "Drop the existing corpus before ingesting",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size in characters (overrides ingest.chunk_size)",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Chunk overlap in characters (overrides ingest.chunk_overlap)",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	env := cmd.String("env")

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := int(cmd.Int("chunk-size")); v > 0 {
		cfg.Ingest.ChunkSize = v
	}
	if v := int(cmd.Int("chunk-overlap")); v > 0 {
		cfg.Ingest.ChunkOverlap = v
	}
	if cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be less than chunk size %d",
			cfg.Ingest.ChunkOverlap, cfg.Ingest.ChunkSize)
	}

	logger, err := logpkg.New(env, cfg.Logging, "ingest")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = cfg.Corpus.Paths()
	}
	if len(paths) == 0 {
		return errors.New("no input paths: pass files as arguments or set corpus.text_path / corpus.pdf_path")
	}

	if !app.EmbeddingConfigured(cfg.Embedding) {
		return errors.New("embedding provider is not configured: set OPENAI_API_KEY or use the ollama provider")
	}

	storage, err := app.OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer storage.Close()

	embedders, err := app.BuildEmbedders(cfg.Embedding, storage, logger)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	svc := ingestuc.New(
		storage.Index,
		embedders.Document,
		loader.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		logger,
	).WithBatchSize(cfg.Ingest.BatchSize)

	rep, err := svc.Ingest(ctx, ingestuc.Request{
		Paths:    paths,
		Recreate: cmd.Bool("recreate"),
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	logger.Info("Ingestion complete",
		zap.String("run_id", rep.RunID),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("loaded", rep.Loaded),
		zap.Int("chunks", rep.Chunks),
		zap.Int("upserted", rep.Upserted),
		zap.Int("dimension", rep.Dimension),
		zap.Duration("duration", rep.Duration),
	)
	return nil
}
