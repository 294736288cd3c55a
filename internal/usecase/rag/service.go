// Package rag composes retrieval and generation into question answering.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/confidence"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Outcome labels for metrics.AskTotal.
const (
	outcomeSuccess          = "success"
	outcomeInvalid          = "invalid"
	outcomeNotLoaded        = "not_loaded"
	outcomeEmbeddingFailed  = "embedding_error"
	outcomeRetrievalFailed  = "retrieval_error"
	outcomeGenerationFailed = "generation_error"
)

// Answer is the result of one question.
type Answer struct {
	Question   string
	K          int
	Text       string
	Contexts   []string
	Scores     []float64
	Confidence float64
}

// Service runs the retrieval-augmented answer pipeline. It holds no per-request state.
type Service struct {
	index Retriever
	embed Embedder
	gen   Generator
}

// New creates a RAG service.
func New(index Retriever, embed Embedder, gen Generator) *Service {
	return &Service{index: index, embed: embed, gen: gen}
}

// Answer embeds the question, retrieves up to k documents, and asks the generator
// to answer from them. An empty corpus yields domain.ErrCorpusNotLoaded; a blank
// question or non-positive k yields a domain.ValidationError. Neither reaches a provider.
func (s *Service) Answer(ctx context.Context, question string, k int) (Answer, error) {
	ans, err := s.answer(ctx, question, k)
	metrics.AskTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		metrics.AskConfidence.Observe(ans.Confidence)
	}
	return ans, err
}

func (s *Service) answer(ctx context.Context, question string, k int) (Answer, error) {
	out := Answer{Question: question, K: k, Contexts: []string{}, Scores: []float64{}}

	stats, err := s.index.Stats(ctx)
	if err != nil {
		return out, fmt.Errorf("corpus stats: %w", err)
	}
	if !stats.Loaded() {
		return out, domain.ErrCorpusNotLoaded
	}

	if strings.TrimSpace(question) == "" {
		return out, domain.NewValidationError("question", "must not be blank")
	}
	if k <= 0 {
		return out, domain.NewValidationError("k", "must be positive")
	}

	emb, err := s.embed.Embed(ctx, question)
	if err != nil {
		return out, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.Search(ctx, emb.Embedding, k)
	if err != nil {
		return out, fmt.Errorf("search corpus: %w", err)
	}

	contexts := corpus.Contents(hits)
	scores := corpus.Scores(hits)

	gen, err := s.gen.Generate(ctx, question, prompt.JoinContext(contexts))
	if err != nil {
		return out, fmt.Errorf("generate answer: %w", err)
	}

	out.Text = gen.Text
	out.Contexts = contexts
	out.Scores = scores
	out.Confidence = confidence.Estimate(scores)
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return outcomeInvalid
	case errors.Is(err, domain.ErrCorpusNotLoaded):
		return outcomeNotLoaded
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return outcomeEmbeddingFailed
	case errors.Is(err, domain.ErrGenerationFailed):
		return outcomeGenerationFailed
	default:
		return outcomeRetrievalFailed
	}
}
