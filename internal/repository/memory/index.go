// Package memory keeps the corpus in process memory and ranks it with exact cosine similarity.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
	"github.com/kailas-cloud/ragchat/internal/domain/ranking"
)

// Index holds documents[i] and vectors[i] side by side.
type Index struct {
	mu      sync.RWMutex
	docs    []corpus.Document
	vectors [][]float32
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{}
}

// Upsert writes entries at their positions. A position equal to the current size appends;
// a position past it would leave a hole and is rejected.
func (x *Index) Upsert(_ context.Context, entries []corpus.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, e := range entries {
		if dim := x.dimension(); dim > 0 && len(e.Embedding) != dim {
			return fmt.Errorf("position %d: dimension %d, index has %d: %w",
				e.Document.Position, len(e.Embedding), dim, domain.ErrVectorDimMismatch)
		}

		pos := e.Document.Position
		switch {
		case pos < 0 || pos > len(x.docs):
			return fmt.Errorf("position %d outside 0..%d: %w", pos, len(x.docs), domain.ErrCorpusMismatch)
		case pos == len(x.docs):
			x.docs = append(x.docs, e.Document)
			x.vectors = append(x.vectors, e.Embedding)
		default:
			x.docs[pos] = e.Document
			x.vectors[pos] = e.Embedding
		}
	}
	return nil
}

// Search ranks every stored vector against query.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]corpus.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.docs) == 0 {
		return []corpus.Hit{}, nil
	}
	if len(query) != x.dimension() {
		return nil, fmt.Errorf("query dimension %d, index has %d: %w",
			len(query), x.dimension(), domain.ErrVectorDimMismatch)
	}

	matches := ranking.Rank(query, x.vectors, k)
	hits := make([]corpus.Hit, len(matches))
	for i, m := range matches {
		hits[i] = corpus.Hit{Document: x.docs[m.Index], Score: m.Score}
	}
	return hits, nil
}

// Stats reports the corpus size and vector dimension.
func (x *Index) Stats(_ context.Context) (corpus.Stats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return corpus.Stats{
		Documents:  len(x.docs),
		Dimension:  x.dimension(),
		Embeddings: len(x.vectors),
	}, nil
}

// Reset drops every entry.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.docs = nil
	x.vectors = nil
	return nil
}

// dimension must be called with mu held.
func (x *Index) dimension() int {
	if len(x.vectors) == 0 {
		return 0
	}
	return len(x.vectors[0])
}
