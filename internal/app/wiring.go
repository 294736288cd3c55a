// Package app assembles storage and provider chains from configuration.
// It is shared by the API server and the offline ingestion CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/db"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	dbValkey "github.com/kailas-cloud/ragchat/internal/db/valkey"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	"github.com/kailas-cloud/ragchat/internal/repository/chromem"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	"github.com/kailas-cloud/ragchat/internal/repository/memory"
	"github.com/kailas-cloud/ragchat/internal/repository/qdrant"
	"github.com/kailas-cloud/ragchat/internal/repository/redisindex"
	"github.com/kailas-cloud/ragchat/internal/throttle"
	"github.com/kailas-cloud/ragchat/internal/transport/ollama"
	"github.com/kailas-cloud/ragchat/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/ragchat/internal/usecase/generation"
)

// KVStore is the key-value surface the query embedding cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Storage is an opened corpus index plus the resources that came with it.
type Storage struct {
	Index corpus.Index
	// Cache is set when the driver offers a key-value store and query caching is enabled.
	Cache KVStore
	// KeyPrefix namespaces cache keys.
	KeyPrefix string
	// Close releases the connection. Never nil.
	Close func()
}

// Embedders holds the decorated embedding chains.
// Query differs from Document by its instruction prefix and the optional cache.
type Embedders struct {
	Document domain.Embedder
	Query    domain.Embedder
	// Base is the instrumented provider without an instruction, used for health checks.
	Base *embeddinguc.InstrumentedEmbedder
}

// OpenStorage connects the corpus index selected by storage.driver.
// On error the returned Storage is still safe to Close.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	st := Storage{KeyPrefix: cfg.KeyPrefix, Close: func() {}}

	switch cfg.Driver {
	case config.DriverMemory, "":
		st.Index = memory.New()
		return st, nil

	case config.DriverRedis, config.DriverValkey:
		store, err := newVectorStore(cfg)
		if err != nil {
			return st, err
		}
		timeout := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return st, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Driver),
			zap.Strings("addrs", cfg.Redis.Addrs),
		)
		st.Index = redisindex.New(store, redisindex.Options{
			Prefix:     cfg.KeyPrefix,
			Collection: cfg.Redis.Collection,
			Algorithm:  db.VectorAlgorithm(cfg.Redis.Algorithm),
		})
		if cfg.Redis.CacheQueryEmbeddings {
			st.Cache = store
		}
		st.Close = store.Close
		return st, nil

	case config.DriverChromem:
		idx, err := chromem.New(chromem.Config{
			Path:       cfg.Chromem.Path,
			Persistent: cfg.Chromem.Persistent,
			Collection: cfg.Chromem.Collection,
		})
		if err != nil {
			return st, fmt.Errorf("open chromem: %w", err)
		}
		logger.Info("Opened embedded index",
			zap.String("path", cfg.Chromem.Path),
			zap.Bool("persistent", cfg.Chromem.Persistent),
		)
		st.Index = idx
		return st, nil

	case config.DriverQdrant:
		idx, err := qdrant.Dial(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			return st, fmt.Errorf("open qdrant: %w", err)
		}
		logger.Info("Connected to qdrant",
			zap.String("host", cfg.Qdrant.Host),
			zap.Int("port", cfg.Qdrant.Port),
		)
		st.Index = idx
		st.Close = func() {
			if err := idx.Close(); err != nil {
				logger.Warn("Close qdrant connection", zap.Error(err))
			}
		}
		return st, nil

	default:
		return st, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newVectorStore creates the database store for the redis and valkey drivers.
func newVectorStore(cfg config.StorageConfig) (db.Store, error) {
	conn := dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	}

	var (
		store db.Store
		err   error
	)
	if cfg.Driver == config.DriverValkey {
		store, err = dbValkey.NewStore(conn)
	} else {
		store, err = dbRedis.NewStore(conn)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

// BuildEmbedders assembles the chain provider -> Instrumented -> Instruction.
// When st carries a cache, the query chain becomes provider -> Instrumented -> Cached -> Instruction,
// so cache hits bypass the provider gate.
func BuildEmbedders(cfg config.EmbeddingConfig, st Storage, logger *zap.Logger) (Embedders, error) {
	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		base = openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   config.ProviderOpenAI,
			Logger:     logger,
		})
	case config.ProviderOllama:
		e, err := ollama.NewEmbedder(&ollama.Config{
			Host:    cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			return Embedders{}, fmt.Errorf("create ollama embedder: %w", err)
		}
		base = e
	default:
		return Embedders{}, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	gate := throttle.NewGate(cfg.MaxConcurrency, time.Duration(cfg.TimeoutSec)*time.Second)
	instrumented := embeddinguc.NewInstrumentedEmbedder(base, providerName(cfg.Provider), cfg.Model, gate, logger)

	var query domain.Embedder = instrumented
	if st.Cache != nil {
		query = embcache.New(instrumented, st.Cache, st.KeyPrefix, cfg.Model, metrics.EmbeddingCacheTotal, logger)
	}

	return Embedders{
		Document: withInstruction(instrumented, cfg.DocumentInstruction),
		Query:    withInstruction(query, cfg.QueryInstruction),
		Base:     instrumented,
	}, nil
}

// BuildGenerator assembles the chain provider -> Instrumented.
func BuildGenerator(cfg config.GenerationConfig, logger *zap.Logger) (*generationuc.InstrumentedGenerator, error) {
	var base domain.Generator
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		base = openai.NewGenerator(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Provider:    config.ProviderOpenAI,
			Logger:      logger,
		})
	case config.ProviderOllama:
		g, err := ollama.NewGenerator(&ollama.Config{
			Host:        cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama generator: %w", err)
		}
		base = g
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}

	gate := throttle.NewGate(cfg.MaxConcurrency, time.Duration(cfg.TimeoutSec)*time.Second)
	return generationuc.NewInstrumentedGenerator(base, providerName(cfg.Provider), cfg.Model, gate, logger), nil
}

// EmbeddingConfigured reports whether the embedding provider can be called at all.
// OpenAI needs an API key; a local Ollama server does not.
func EmbeddingConfigured(cfg config.EmbeddingConfig) bool {
	if cfg.Provider == config.ProviderOllama {
		return true
	}
	return cfg.APIKey != ""
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

func providerName(p string) string {
	if p == "" {
		return config.ProviderOpenAI
	}
	return p
}
