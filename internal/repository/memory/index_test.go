package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

func seed(t *testing.T, x *Index, contents []string, vectors [][]float32) {
	t.Helper()
	entries, err := corpus.NewEntries(0, contents, vectors)
	if err != nil {
		t.Fatalf("NewEntries: %v", err)
	}
	if err := x.Upsert(context.Background(), entries); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestSearch_RanksByCosine(t *testing.T) {
	x := New()
	seed(t, x, []string{"east", "north", "north-east"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	hits, err := x.Search(context.Background(), []float32{0, 1}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Document.Content != "north" || hits[1].Document.Content != "north-east" {
		t.Errorf("unexpected order: %+v", hits)
	}
	if hits[0].Score != 1 {
		t.Errorf("expected exact match score 1, got %f", hits[0].Score)
	}
}

func TestSearch_TiesKeepSmallerPosition(t *testing.T) {
	x := New()
	seed(t, x, []string{"a", "b", "c"}, [][]float32{{1, 0}, {2, 0}, {3, 0}})

	hits, err := x.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, h := range hits {
		if h.Document.Position != i {
			t.Errorf("hit %d has position %d", i, h.Document.Position)
		}
	}
}

func TestSearch_EmptyAndNonPositiveK(t *testing.T) {
	x := New()

	hits, err := x.Search(context.Background(), []float32{1}, 3)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Fatalf("empty index: hits=%v err=%v", hits, err)
	}

	seed(t, x, []string{"a"}, [][]float32{{1}})
	hits, err = x.Search(context.Background(), []float32{1}, 0)
	if err != nil || hits == nil || len(hits) != 0 {
		t.Fatalf("k=0: hits=%v err=%v", hits, err)
	}
}

func TestSearch_KLargerThanCorpus(t *testing.T) {
	x := New()
	seed(t, x, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})

	hits, err := x.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	x := New()
	seed(t, x, []string{"a"}, [][]float32{{1, 0}})

	_, err := x.Search(context.Background(), []float32{1, 0, 0}, 1)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestUpsert_ReplacesAndRejectsHoles(t *testing.T) {
	x := New()
	seed(t, x, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	ctx := context.Background()

	replace := []corpus.Entry{{Document: corpus.Document{Position: 1, Content: "B"}, Embedding: []float32{1, 1}}}
	if err := x.Upsert(ctx, replace); err != nil {
		t.Fatalf("replace: %v", err)
	}
	stats, _ := x.Stats(ctx)
	if stats.Documents != 2 {
		t.Errorf("expected 2 documents after replace, got %d", stats.Documents)
	}

	hole := []corpus.Entry{{Document: corpus.Document{Position: 5, Content: "x"}, Embedding: []float32{1, 1}}}
	if err := x.Upsert(ctx, hole); !errors.Is(err, domain.ErrCorpusMismatch) {
		t.Errorf("expected ErrCorpusMismatch, got %v", err)
	}

	wrongDim := []corpus.Entry{{Document: corpus.Document{Position: 2, Content: "c"}, Embedding: []float32{1}}}
	if err := x.Upsert(ctx, wrongDim); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestStatsAndReset(t *testing.T) {
	x := New()
	ctx := context.Background()
	seed(t, x, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})

	stats, err := x.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats != (corpus.Stats{Documents: 3, Dimension: 3, Embeddings: 3}) {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := x.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	stats, _ = x.Stats(ctx)
	if stats.Loaded() {
		t.Errorf("expected empty corpus after reset, got %+v", stats)
	}
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	x := New()
	seed(t, x, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := x.Search(context.Background(), []float32{1, 0}, 1); err != nil {
				t.Errorf("Search: %v", err)
			}
		}()
	}
	wg.Wait()
}
