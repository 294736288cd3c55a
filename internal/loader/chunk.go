package loader

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits long documents into overlapping pieces for batch ingestion.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a recursive character splitter with the given size and overlap in characters.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Split chunks every document and flattens the result, preserving order.
func (c *Chunker) Split(docs []string) ([]string, error) {
	var out []string
	for i, d := range docs {
		parts, err := c.splitter.SplitText(d)
		if err != nil {
			return nil, fmt.Errorf("split document %d: %w", i, err)
		}
		out = append(out, parts...)
	}
	return out, nil
}
