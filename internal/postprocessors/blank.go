package postprocessors

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// BlankFilter drops chunks whose text is empty after trimming.
// Sequence ids of the remaining chunks are left as assigned.
type BlankFilter struct{}

// NewBlankFilter creates a blank filter processor.
func NewBlankFilter() *BlankFilter {
	return &BlankFilter{}
}

// Name returns the processor name.
func (f *BlankFilter) Name() string {
	return "blank"
}

// Process returns chunks without the whitespace-only ones.
func (f *BlankFilter) Process(_ context.Context, _ *driven.UnitText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}
