// Package corpus defines the document corpus and the index contract every storage backend satisfies.
package corpus

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Document is a retrievable unit of text. Its position in the corpus is its only identity.
type Document struct {
	Position int
	Content  string
}

// Entry pairs a document with its embedding.
type Entry struct {
	Document  Document
	Embedding []float32
}

// Hit is a retrieved document with its cosine similarity to the query.
type Hit struct {
	Document Document
	Score    float64
}

// Stats describes the loaded corpus.
type Stats struct {
	Documents  int
	Dimension  int
	Embeddings int
}

// Loaded reports whether the corpus holds any documents.
func (s Stats) Loaded() bool { return s.Documents > 0 }

// Index stores entries and answers top-k similarity queries.
//
// Search returns at most k hits ordered by descending score, ties broken by smaller position.
// A non-positive k or an empty index returns no hits.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Stats(ctx context.Context) (Stats, error)
	Reset(ctx context.Context) error
}

// NewEntries zips contents and embeddings into positioned entries starting at offset.
// Every embedding must share one dimension.
func NewEntries(offset int, contents []string, embeddings [][]float32) ([]Entry, error) {
	if len(contents) != len(embeddings) {
		return nil, fmt.Errorf("%d documents, %d embeddings: %w",
			len(contents), len(embeddings), domain.ErrCorpusMismatch)
	}

	entries := make([]Entry, len(contents))
	for i, c := range contents {
		if len(embeddings[i]) == 0 || len(embeddings[i]) != len(embeddings[0]) {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d: %w",
				i, len(embeddings[i]), len(embeddings[0]), domain.ErrVectorDimMismatch)
		}
		entries[i] = Entry{
			Document:  Document{Position: offset + i, Content: c},
			Embedding: embeddings[i],
		}
	}
	return entries, nil
}

// Contents returns the text of each hit in rank order.
func Contents(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Document.Content
	}
	return out
}

// Scores returns the similarity of each hit in rank order.
func Scores(hits []Hit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Score
	}
	return out
}

// SortHits orders hits by score descending, then by position ascending.
// Backends re-sort with it so ties are deterministic regardless of engine order.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.Position < hits[j].Document.Position
	})
}

// Truncate returns at most k hits.
func Truncate(hits []Hit, k int) []Hit {
	if k < len(hits) {
		return hits[:k]
	}
	return hits
}

// FetchFunc returns up to n nearest hits in any order. Fewer than n means the index is exhausted.
type FetchFunc func(ctx context.Context, n int) ([]Hit, error)

// TopK serves Search for engines that break score ties arbitrarily. It fetches k+1 hits
// and doubles the window while the score at rank k is still tied with the last fetched row,
// so every document sharing the boundary score competes on position.
func TopK(ctx context.Context, k int, fetch FetchFunc) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	for n := k + 1; ; n *= 2 {
		hits, err := fetch(ctx, n)
		if err != nil {
			return nil, err
		}
		SortHits(hits)
		if len(hits) < n || hits[k-1].Score != hits[len(hits)-1].Score {
			return Truncate(hits, k), nil
		}
	}
}
