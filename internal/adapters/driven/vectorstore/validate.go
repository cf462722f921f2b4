package vectorstore

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ValidateInsert checks a batch before anything is written: ids must be
// non-empty and unique within the batch, and every embedding must have the
// same non-zero length, equal to dim when dim > 0. It returns the batch
// dimension.
func ValidateInsert(chunks []domain.IndexedChunk, dim int) (int, error) {
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			return 0, fmt.Errorf("%w: chunk %d has no id", domain.ErrValidation, i)
		}
		if _, dup := seen[c.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate id %q in batch", domain.ErrValidation, c.ID)
		}
		seen[c.ID] = struct{}{}

		if len(c.Embedding) == 0 {
			return 0, fmt.Errorf("%w: chunk %q has no embedding", domain.ErrValidation, c.ID)
		}
		if dim == 0 {
			dim = len(c.Embedding)
		}
		if len(c.Embedding) != dim {
			return 0, fmt.Errorf("%w: chunk %q has dimension %d, want %d",
				domain.ErrValidation, c.ID, len(c.Embedding), dim)
		}
	}
	return dim, nil
}

// ValidateQuery checks a search vector against the collection dimension.
// dim == 0 means the collection is empty and any query is accepted.
func ValidateQuery(query []float32, dim int) error {
	if len(query) == 0 {
		return fmt.Errorf("%w: empty query vector", domain.ErrValidation)
	}
	if dim > 0 && len(query) != dim {
		return fmt.Errorf("%w: query has dimension %d, want %d", domain.ErrValidation, len(query), dim)
	}
	return nil
}

// InsertBatch inserts parallel arrays of texts, embeddings, metadata and ids
// into collection. The arrays must have equal length; nothing is written
// otherwise.
func InsertBatch(
	ctx context.Context,
	collection driven.Collection,
	texts []string,
	embeddings [][]float32,
	metadata []domain.ChunkMetadata,
	ids []string,
) error {
	n := len(texts)
	if len(embeddings) != n || len(metadata) != n || len(ids) != n {
		return fmt.Errorf("%w: parallel arrays differ in length (texts %d, embeddings %d, metadata %d, ids %d)",
			domain.ErrValidation, n, len(embeddings), len(metadata), len(ids))
	}
	if n == 0 {
		return nil
	}

	chunks := make([]domain.IndexedChunk, n)
	for i := range texts {
		chunks[i] = domain.IndexedChunk{
			ID:        ids[i],
			Text:      texts[i],
			Embedding: embeddings[i],
			Metadata:  metadata[i],
		}
	}
	return collection.Insert(ctx, chunks)
}
