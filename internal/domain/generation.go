package domain

import "context"

// Generator produces an answer for a question grounded in the supplied context.
// Implementations return the model text verbatim and wrap failures in ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (GenerationResult, error)
}

// GenerationResult carries the answer text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
