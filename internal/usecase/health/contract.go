package health

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// CorpusStater reports corpus size.
type CorpusStater interface {
	Stats(ctx context.Context) (corpus.Stats, error)
}

// ProviderChecker checks embedding or generation provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
