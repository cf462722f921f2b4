package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentService manages indexed document generations.
type DocumentService interface {
	// List returns one entry per indexed document generation.
	List(ctx context.Context) ([]domain.DocumentInfo, error)

	// Get returns the aggregate entry for docID, or domain.ErrNotFound.
	Get(ctx context.Context, docID string) (*domain.DocumentInfo, error)

	// Count returns the number of chunks stored for docID.
	Count(ctx context.Context, docID string) (int, error)

	// Delete removes every chunk of docID. Unknown ids succeed.
	// It returns the number of chunks removed.
	Delete(ctx context.Context, docID string) (int, error)

	// TotalChunks returns the number of chunks in the collection.
	TotalChunks(ctx context.Context) (int, error)
}
