package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad signals that a corpus source could not be read or parsed.
	ErrLoad = errors.New("load error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a chat completion provider failure.
	ErrGenerationFailed = errors.New("generation error")
	// ErrValidation signals a malformed request.
	ErrValidation = errors.New("validation error")
	// ErrCorpusNotLoaded signals that the corpus is empty.
	ErrCorpusNotLoaded = errors.New("documents not loaded")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrCorpusMismatch signals documents and embeddings of different lengths.
	ErrCorpusMismatch = errors.New("documents and embeddings length mismatch")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LoadError wraps ErrLoad with the source path and the underlying cause.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLoad.Error(), e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }

// NewLoadError creates a load error for the given path.
func NewLoadError(path string, err error) error {
	return &LoadError{Path: path, Err: err}
}
