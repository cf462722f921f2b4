package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore owns the single persistent collection.
type VectorStore interface {
	// Open returns the collection handle, creating it on first use.
	// Repeated calls return the same handle. forceNew closes the current
	// handle and builds a fresh one over the same durable data; the old
	// handle becomes unusable.
	Open(ctx context.Context, forceNew bool) (Collection, error)

	// RemoveStorage closes any open handle and wipes the durable data.
	// Used by reset and test paths only.
	RemoveStorage(ctx context.Context) error

	// Close releases the open handle, if any.
	Close() error
}

// Collection is an open handle on the stored chunks.
// Every method returns an error wrapping domain.ErrStoreUnavailable once the
// handle has been closed or replaced.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Insert stores chunks atomically. Empty input is a no-op.
	// Duplicate ids and dimension mismatches are rejected with
	// domain.ErrValidation before anything is written.
	Insert(ctx context.Context, chunks []domain.IndexedChunk) error

	// Search returns up to topK chunks matching filter, nearest first.
	// Ties are broken by chunk id.
	Search(ctx context.Context, query []float32, topK int, filter domain.ChunkFilter) ([]domain.SearchHit, error)

	// DeleteByDoc removes every chunk of a document generation.
	// Deleting an unknown id succeeds.
	DeleteByDoc(ctx context.Context, docID string) error

	// AggregateDocuments groups stored chunks by doc id (filename for
	// legacy records) in order of first appearance.
	AggregateDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// CountChunksForDoc returns the number of chunks with docID, 0 if unknown.
	CountChunksForDoc(ctx context.Context, docID string) (int, error)

	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Available reports whether the handle is still usable without
	// touching the durable data.
	Available() error

	// Dimension returns the embedding length fixed by the first insert,
	// or 0 while the collection is empty.
	Dimension() int

	// Close releases the handle.
	Close() error
}
