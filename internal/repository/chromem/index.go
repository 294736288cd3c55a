// Package chromem keeps the corpus in an embedded chromem-go collection, optionally persisted to disk.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// DefaultCollection is used when Config.Collection is empty.
const DefaultCollection = "rag_collection"

var errNoEmbedder = errors.New("chromem: documents must carry precomputed embeddings")

// Config selects the collection and the storage mode.
type Config struct {
	Path       string
	Persistent bool
	Collection string
}

// Index implements corpus.Index with a chromem-go collection.
// Document IDs are decimal positions.
type Index struct {
	db   *chromem.DB
	name string

	mu         sync.RWMutex
	collection *chromem.Collection
}

// New opens (or creates) the configured collection.
func New(cfg Config) (*Index, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
		}
		db = d
	}

	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	x := &Index{db: db, name: name}
	if err := x.open(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *Index) open() error {
	c, err := x.db.GetOrCreateCollection(x.name, nil, refuseEmbedding)
	if err != nil {
		return fmt.Errorf("collection %s: %w", x.name, err)
	}
	x.collection = c
	return nil
}

// refuseEmbedding keeps chromem from calling out to a provider on its own.
func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Upsert adds entries; an existing ID is overwritten by chromem.
func (x *Index) Upsert(ctx context.Context, entries []corpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	dim, err := x.dimension(ctx)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if dim == 0 {
			dim = len(e.Embedding)
		}
		if len(e.Embedding) != dim {
			return fmt.Errorf("position %d: dimension %d, index has %d: %w",
				e.Document.Position, len(e.Embedding), dim, domain.ErrVectorDimMismatch)
		}
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(e.Document.Position),
			Content:   e.Document.Content,
			Embedding: e.Embedding,
		}
	}

	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add %d documents to %s: %w", len(docs), x.name, err)
	}
	return nil
}

// Search queries by embedding. chromem rejects nResults above the collection size, so each fetch is capped.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]corpus.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := x.collection.Count()
	if k <= 0 || n == 0 {
		return []corpus.Hit{}, nil
	}

	dim, err := x.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) != dim {
		return nil, fmt.Errorf("query dimension %d, index has %d: %w", len(query), dim, domain.ErrVectorDimMismatch)
	}

	return corpus.TopK(ctx, k, func(ctx context.Context, fetch int) ([]corpus.Hit, error) {
		return x.query(ctx, query, min(fetch, n))
	})
}

func (x *Index) query(ctx context.Context, query []float32, n int) ([]corpus.Hit, error) {
	results, err := x.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", x.name, err)
	}

	hits := make([]corpus.Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("document id %q is not a position: %w", r.ID, err)
		}
		score := float64(r.Similarity)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		hits = append(hits, corpus.Hit{
			Document: corpus.Document{Position: pos, Content: r.Content},
			Score:    score,
		})
	}
	return hits, nil
}

// Stats reports the collection size; the dimension comes from the first document.
func (x *Index) Stats(ctx context.Context) (corpus.Stats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := x.collection.Count()
	if n == 0 {
		return corpus.Stats{}, nil
	}
	dim, err := x.dimension(ctx)
	if err != nil {
		return corpus.Stats{}, err
	}
	return corpus.Stats{Documents: n, Dimension: dim, Embeddings: n}, nil
}

// Reset deletes and recreates the collection.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.db.DeleteCollection(x.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", x.name, err)
	}
	return x.open()
}

// dimension must be called with mu held. An empty collection has dimension 0.
func (x *Index) dimension(ctx context.Context) (int, error) {
	if x.collection.Count() == 0 {
		return 0, nil
	}
	doc, err := x.collection.GetByID(ctx, "0")
	if err != nil {
		return 0, fmt.Errorf("read document 0 of %s: %w", x.name, err)
	}
	return len(doc.Embedding), nil
}
