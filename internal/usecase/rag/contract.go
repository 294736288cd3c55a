package rag

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// Retriever answers similarity queries and reports corpus size.
type Retriever interface {
	Search(ctx context.Context, query []float32, k int) ([]corpus.Hit, error)
	Stats(ctx context.Context) (corpus.Stats, error)
}

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the grounded answer.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (domain.GenerationResult, error)
}
