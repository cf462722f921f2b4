package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// UnitProgressFunc is called once per content unit after its text is final.
// ordinal runs from 1 to total.
type UnitProgressFunc func(ordinal, total int)

// Extractor turns a document file into ordered content units.
// Each extractor handles a fixed set of file extensions.
type Extractor interface {
	// Name returns the extractor name for logging.
	Name() string

	// Extensions returns the lower-cased file extensions handled, including the dot.
	Extensions() []string

	// Extract reads the file at path. An unreadable or corrupt file returns an
	// error wrapping domain.ErrExtraction. progress may be nil.
	Extract(ctx context.Context, path string, progress UnitProgressFunc) ([]domain.ContentUnit, domain.DocumentMeta, error)
}

// ExtractorRegistry selects the extractor for a file.
type ExtractorRegistry interface {
	// Register adds an extractor for each of its extensions.
	// A later registration for the same extension replaces the earlier one.
	Register(extractor Extractor)

	// ForPath returns the extractor for the path's extension, or an error
	// wrapping domain.ErrUnsupportedType.
	ForPath(path string) (Extractor, error)

	// SupportedExtensions returns every registered extension, sorted.
	SupportedExtensions() []string
}
