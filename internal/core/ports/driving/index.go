package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// IndexOptions tunes a single indexing operation.
type IndexOptions struct {
	// ReplaceExisting deletes older generations of the same filename once
	// the new generation is stored.
	ReplaceExisting bool
}

// IndexResult reports what an indexing operation stored.
type IndexResult struct {
	// DocID is the generation id minted for the document. Empty when
	// nothing was stored.
	DocID string

	// Chunks is the number of chunks stored.
	Chunks int

	// Replaced lists the older generations removed by ReplaceExisting.
	Replaced []string
}

// IndexService indexes documents into the collection.
type IndexService interface {
	// IndexDocument extracts, chunks, embeds and stores the file at path
	// under originalFilename. The bool is the success contract; the error
	// carries the cause when it is false. sink may be nil.
	IndexDocument(ctx context.Context, path, originalFilename string, sink driven.ProgressSink) (bool, error)

	// IndexDocumentWithOptions is IndexDocument with options and a result.
	IndexDocumentWithOptions(
		ctx context.Context,
		path, originalFilename string,
		sink driven.ProgressSink,
		opts IndexOptions,
	) (*IndexResult, error)
}
