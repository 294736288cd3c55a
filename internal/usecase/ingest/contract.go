package ingest

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
)

// Index is the storage contract ingestion writes into.
type Index interface {
	Upsert(ctx context.Context, entries []corpus.Entry) error
	Stats(ctx context.Context) (corpus.Stats, error)
	Reset(ctx context.Context) error
}

// Splitter chunks documents before embedding.
type Splitter interface {
	Split(docs []string) ([]string, error)
}

// LoadFunc reads one source file into documents.
type LoadFunc func(path string) ([]string, error)
