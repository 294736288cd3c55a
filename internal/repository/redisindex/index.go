// Package redisindex stores the corpus as HASH keys under an FT vector index (Redis 8+ or Valkey).
package redisindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

const (
	fieldContent  = "content"
	fieldPosition = "position"
	fieldVector   = "vector"
	fieldScore    = "__vector_score"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Options select the key namespace and vector algorithm.
type Options struct {
	Prefix     string // e.g. "ragchat:"
	Collection string
	Algorithm  db.VectorAlgorithm
}

// Index implements corpus.Index on top of db.Store.
type Index struct {
	store store
	opts  Options
}

// New creates a Redis-backed corpus index.
func New(s store, opts Options) *Index {
	if opts.Algorithm == "" {
		opts.Algorithm = db.VectorFlat
	}
	return &Index{store: s, opts: opts}
}

// Upsert creates the FT index on first write and stores one hash per entry.
// The first write fixes the vector dimension.
func (x *Index) Upsert(ctx context.Context, entries []corpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dim := len(entries[0].Embedding)
	stored, err := x.dimension(ctx)
	if err != nil {
		return err
	}

	switch {
	case stored == 0:
		if err := x.createIndex(ctx, dim); err != nil {
			return err
		}
	case stored != dim:
		return fmt.Errorf("entries have dimension %d, index has %d: %w", dim, stored, domain.ErrVectorDimMismatch)
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("position %d: dimension %d, want %d: %w",
				e.Document.Position, len(e.Embedding), dim, domain.ErrVectorDimMismatch)
		}
		items[i] = db.HashSetItem{
			Key: x.docKey(e.Document.Position),
			Fields: map[string]string{
				fieldContent:  e.Document.Content,
				fieldPosition: strconv.Itoa(e.Document.Position),
				fieldVector:   db.EncodeVector(e.Embedding),
			},
		}
	}

	if err := x.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset %d entries: %w", len(items), err)
	}
	return nil
}

// Search runs FT.SEARCH KNN and re-sorts so ties favour the smaller position.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]corpus.Hit, error) {
	if k <= 0 {
		return []corpus.Hit{}, nil
	}

	dim, err := x.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []corpus.Hit{}, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("query dimension %d, index has %d: %w", len(query), dim, domain.ErrVectorDimMismatch)
	}

	return corpus.TopK(ctx, k, func(ctx context.Context, n int) ([]corpus.Hit, error) {
		return x.knn(ctx, query, n)
	})
}

func (x *Index) knn(ctx context.Context, query []float32, k int) ([]corpus.Hit, error) {
	res, err := x.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    x.indexName(),
		Vector:       query,
		K:            k,
		ReturnFields: []string{fieldContent, fieldPosition, fieldScore},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", x.indexName(), err)
	}

	hits := make([]corpus.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		pos, err := x.position(e)
		if err != nil {
			return nil, err
		}
		hits = append(hits, corpus.Hit{
			Document: corpus.Document{Position: pos, Content: e.Fields[fieldContent]},
			Score:    e.Score,
		})
	}
	return hits, nil
}

// Stats counts indexed hashes. A missing index is an empty corpus.
func (x *Index) Stats(ctx context.Context) (corpus.Stats, error) {
	dim, err := x.dimension(ctx)
	if err != nil {
		return corpus.Stats{}, err
	}
	if dim == 0 {
		return corpus.Stats{}, nil
	}

	n, err := x.store.SearchCount(ctx, x.indexName(), "*")
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("count %s: %w", x.indexName(), err)
	}
	return corpus.Stats{Documents: n, Dimension: dim, Embeddings: n}, nil
}

// Reset drops the index with its documents and forgets the dimension.
func (x *Index) Reset(ctx context.Context) error {
	if err := x.store.DropIndex(ctx, x.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", x.indexName(), err)
	}
	if err := x.store.Del(ctx, x.metaKey()); err != nil {
		return fmt.Errorf("del %s: %w", x.metaKey(), err)
	}
	return nil
}

func (x *Index) createIndex(ctx context.Context, dim int) error {
	b := db.NewIndex(x.indexName()).
		Prefix(x.docPrefix()).
		Numeric(fieldPosition)
	if x.opts.Algorithm == db.VectorHNSW {
		b = b.VectorHNSW(fieldVector, dim, db.DistanceCosine, 0, 0)
	} else {
		b = b.VectorFlat(fieldVector, dim, db.DistanceCosine)
	}

	def, err := b.Build()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := x.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	if err := x.store.Set(ctx, x.metaKey(), []byte(strconv.Itoa(dim))); err != nil {
		return fmt.Errorf("set %s: %w", x.metaKey(), err)
	}
	return nil
}

// dimension reads the stored vector dimension; 0 means nothing was ingested.
func (x *Index) dimension(ctx context.Context) (int, error) {
	raw, err := x.store.Get(ctx, x.metaKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", x.metaKey(), err)
	}
	dim, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse dimension %q: %w", raw, err)
	}
	return dim, nil
}

func (x *Index) position(e db.SearchEntry) (int, error) {
	if raw, ok := e.Fields[fieldPosition]; ok {
		if pos, err := strconv.Atoi(raw); err == nil {
			return pos, nil
		}
	}
	pos, err := strconv.Atoi(strings.TrimPrefix(e.Key, x.docPrefix()))
	if err != nil {
		return 0, fmt.Errorf("key %s has no position: %w", e.Key, err)
	}
	return pos, nil
}

func (x *Index) namespace() string {
	return x.opts.Prefix + x.opts.Collection
}

func (x *Index) indexName() string { return x.namespace() + ":idx" }
func (x *Index) metaKey() string   { return x.namespace() + ":meta" }
func (x *Index) docPrefix() string { return x.namespace() + ":doc:" }

func (x *Index) docKey(position int) string {
	return x.docPrefix() + strconv.Itoa(position)
}
