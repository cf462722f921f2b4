package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// UnitText is the input of the chunk pipeline: one unit's text and the
// metadata every chunk drawn from it inherits.
type UnitText struct {
	Text string
	Base domain.ChunkMetadata
}

// PostProcessor transforms unit text into chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, blank filtering).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes unit text and returns chunks.
	// If the processor modifies chunks (e.g., filtering), it receives and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	Process(ctx context.Context, unit *UnitText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the unit through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, unit *UnitText) ([]domain.Chunk, error)
}
