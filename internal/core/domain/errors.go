package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates no extractor handles the file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrExtraction indicates a document could not be opened or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingUnavailable indicates the embedding model is not loaded
	// or inference failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrModelUnavailable indicates the embedding model could not be loaded.
	// It matches ErrEmbeddingUnavailable under errors.Is.
	ErrModelUnavailable = fmt.Errorf("model unavailable: %w", ErrEmbeddingUnavailable)

	// ErrStoreUnavailable indicates the collection is not open or the
	// backend failed.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrValidation indicates caller supplied data that violates a
	// precondition, such as parallel arrays of different lengths.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// SynthesisErrorPrefix starts every user-facing answer synthesis error.
const SynthesisErrorPrefix = "Error communicating with the model"

// NewSynthesisError wraps a backend failure in a message fit to be shown
// in place of an answer.
//
//nolint:staticcheck // ST1005: shown to users verbatim.
func NewSynthesisError(provider string, err error) error {
	return fmt.Errorf(SynthesisErrorPrefix+" (%s): %w", provider, err)
}
