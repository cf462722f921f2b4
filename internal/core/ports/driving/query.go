package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryOptions tunes a single question.
type QueryOptions struct {
	// Filter restricts retrieval. The zero value matches every chunk.
	Filter domain.ChunkFilter

	// TopK overrides the configured number of chunks retrieved when > 0.
	TopK int
}

// QueryService answers questions against the collection.
type QueryService interface {
	// Query answers question from the top-K nearest chunks.
	// It returns nil and an error only when the question could not be embedded
	// or the store failed; "no results" is a successful answer.
	Query(ctx context.Context, question string) (*domain.Answer, error)

	// QueryWithFilter is Query restricted to chunks matching filter.
	QueryWithFilter(ctx context.Context, question string, filter domain.ChunkFilter) (*domain.Answer, error)

	// QueryWithOptions is Query with per-call options.
	QueryWithOptions(ctx context.Context, question string, opts QueryOptions) (*domain.Answer, error)
}
