// Package ingest loads corpus sources, embeds them, and writes them into the configured index.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
	"github.com/kailas-cloud/ragchat/internal/loader"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// DefaultBatchSize is the number of documents embedded and upserted together.
const DefaultBatchSize = 64

// Report summarizes one ingestion run.
type Report struct {
	RunID     string
	Skipped   bool
	Sources   map[string]int
	Loaded    int
	Chunks    int
	Upserted  int
	Dimension int
	Duration  time.Duration
}

// Request configures a batch ingestion run.
type Request struct {
	Paths    []string
	Recreate bool
}

// Service runs startup bootstrap and offline batch ingestion.
type Service struct {
	index     Index
	embed     domain.Embedder
	splitter  Splitter
	load      LoadFunc
	batchSize int
	logger    *zap.Logger
}

// New creates an ingestion service. splitter may be nil to keep documents whole.
func New(index Index, embed domain.Embedder, splitter Splitter, logger *zap.Logger) *Service {
	return &Service{
		index:     index,
		embed:     embed,
		splitter:  splitter,
		load:      loader.Load,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize configures the embed/upsert batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// WithLoader replaces the source reader.
func (s *Service) WithLoader(load LoadFunc) *Service {
	if load != nil {
		s.load = load
	}
	return s
}

// Bootstrap populates an empty index from paths, in path order. A non-empty index is left untouched.
// Documents are embedded in batches but written with a single upsert, so any load or
// embedding failure aborts before the first write and leaves the corpus empty.
func (s *Service) Bootstrap(ctx context.Context, paths ...string) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), Sources: make(map[string]int, len(paths))}

	st, err := s.index.Stats(ctx)
	if err != nil {
		return rep, fmt.Errorf("corpus stats: %w", err)
	}
	if st.Loaded() {
		rep.Skipped = true
		rep.Dimension = st.Dimension
		metrics.CorpusDocuments.Set(float64(st.Documents))
		s.logger.Info("Corpus already populated, bootstrap skipped",
			zap.String("run_id", rep.RunID),
			zap.Int("documents", st.Documents),
		)
		return rep, nil
	}

	docs, err := s.prepare(paths, &rep)
	if err != nil {
		return rep, err
	}

	embeddings := make([][]float32, 0, len(docs))
	for lo := 0; lo < len(docs); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(docs))
		res, err := domain.EmbedAll(ctx, s.embed, docs[lo:hi])
		if err != nil {
			return rep, fmt.Errorf("embed corpus batch at %d: %w", lo, err)
		}
		embeddings = append(embeddings, res.Embeddings...)
	}

	entries, err := corpus.NewEntries(0, docs, embeddings)
	if err != nil {
		return rep, fmt.Errorf("build corpus: %w", err)
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return rep, fmt.Errorf("upsert corpus: %w", err)
	}

	rep.Upserted = len(entries)
	if len(entries) > 0 {
		rep.Dimension = len(entries[0].Embedding)
	}
	rep.Duration = time.Since(start)
	metrics.CorpusDocuments.Set(float64(rep.Upserted))

	s.logger.Info("Corpus bootstrapped",
		zap.String("run_id", rep.RunID),
		zap.Any("sources", rep.Sources),
		zap.Int("documents", rep.Upserted),
		zap.Int("dimension", rep.Dimension),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// Ingest loads, chunks, embeds and upserts req.Paths in batches, appending after any
// existing documents. With Recreate the index is reset first. Batches already written
// stay written when a later batch fails.
func (s *Service) Ingest(ctx context.Context, req Request) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), Sources: make(map[string]int, len(req.Paths))}
	log := s.logger.With(zap.String("run_id", rep.RunID))

	if req.Recreate {
		if err := s.index.Reset(ctx); err != nil {
			return rep, fmt.Errorf("reset index: %w", err)
		}
		log.Info("Index reset")
	}

	docs, err := s.prepare(req.Paths, &rep)
	if err != nil {
		return rep, err
	}

	st, err := s.index.Stats(ctx)
	if err != nil {
		return rep, fmt.Errorf("corpus stats: %w", err)
	}
	offset := st.Documents

	for lo := 0; lo < len(docs); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(docs))

		res, err := domain.EmbedAll(ctx, s.embed, docs[lo:hi])
		if err != nil {
			return rep, fmt.Errorf("embed batch at %d: %w", lo, err)
		}

		entries, err := corpus.NewEntries(offset+lo, docs[lo:hi], res.Embeddings)
		if err != nil {
			return rep, fmt.Errorf("build batch at %d: %w", lo, err)
		}
		if err := s.index.Upsert(ctx, entries); err != nil {
			return rep, fmt.Errorf("upsert batch at %d: %w", lo, err)
		}

		rep.Upserted += len(entries)
		rep.Dimension = len(entries[0].Embedding)
		log.Debug("Batch upserted",
			zap.Int("offset", offset+lo),
			zap.Int("size", len(entries)),
		)
	}

	rep.Duration = time.Since(start)
	metrics.CorpusDocuments.Set(float64(offset + rep.Upserted))

	log.Info("Ingestion completed",
		zap.Any("sources", rep.Sources),
		zap.Int("loaded", rep.Loaded),
		zap.Int("chunks", rep.Chunks),
		zap.Int("upserted", rep.Upserted),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// prepare loads every path and applies the splitter, filling the load counters of rep.
func (s *Service) prepare(paths []string, rep *Report) ([]string, error) {
	var docs []string
	for _, p := range paths {
		loaded, err := s.load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		rep.Sources[p] = len(loaded)
		docs = append(docs, loaded...)
	}
	rep.Loaded = len(docs)

	if s.splitter != nil {
		chunks, err := s.splitter.Split(docs)
		if err != nil {
			return nil, fmt.Errorf("chunk documents: %w", err)
		}
		docs = chunks
	}
	rep.Chunks = len(docs)
	return docs, nil
}
