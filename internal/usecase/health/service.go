package health

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates the corpus is loaded and every probed component answers.
	Healthy Status = "healthy"
	// NotLoaded indicates the corpus is empty; /ask cannot answer.
	NotLoaded Status = "documents_not_loaded"
	// Degraded indicates the corpus is loaded but a provider check fails.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const (
	messageReady     = "Ready"
	messageNotLoaded = "Set OPENAI_API_KEY environment variable to enable document loading"
)

// Report aggregates health check results.
type Report struct {
	Status          Status
	DocumentsLoaded int
	EmbeddingsReady bool
	Message         string
	Checks          map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      CorpusStater
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. embedding and generation can be nil to skip provider probes.
func New(index CorpusStater, embedding, generation ProviderChecker) *Service {
	return &Service{index: index, embedding: embedding, generation: generation}
}

// Stats returns the corpus statistics served by /stats.
func (s *Service) Stats(ctx context.Context) (corpus.Stats, error) {
	st, err := s.index.Stats(ctx)
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("corpus stats: %w", err)
	}
	return st, nil
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	st, err := s.index.Stats(ctx)
	if err != nil {
		checks["corpus"] = CheckError
	} else {
		checks["corpus"] = CheckOK
	}

	probe(ctx, checks, "embedding", s.embedding)
	probe(ctx, checks, "generation", s.generation)

	r := Report{
		DocumentsLoaded: st.Documents,
		EmbeddingsReady: st.Embeddings > 0,
		Checks:          checks,
	}

	if !st.Loaded() {
		r.Status = NotLoaded
		r.Message = messageNotLoaded
		return r
	}

	r.Status = Healthy
	r.Message = messageReady
	for _, v := range checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	return r
}

func probe(ctx context.Context, checks map[string]CheckResult, name string, c ProviderChecker) {
	if c == nil {
		return
	}
	if err := c.HealthCheck(ctx); err != nil {
		checks[name] = CheckError
	} else {
		checks[name] = CheckOK
	}
}
