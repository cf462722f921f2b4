// Package html extracts visible text from HTML files.
package html

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/extractors/htmltext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields the body text of an HTML page as one unit.
type Extractor struct{}

// New creates an HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "html"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Extract parses the page. The unit title prefers <title>, then the first
// <h1>, then the file name.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("html", path, err)
	}
	defer f.Close()

	doc, err := htmltext.Parse(f)
	if err != nil {
		return nil, domain.DocumentMeta{}, fmt.Errorf("%w: parse html: %w", domain.ErrExtraction, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.DocumentMeta{}, err
	}

	title := doc.Title
	if title == "" {
		title = doc.H1
	}
	if title == "" {
		title = extractors.TitleFromFilename(path)
	}

	if progress != nil {
		progress(1, 1)
	}

	units := []domain.ContentUnit{{Ordinal: 1, Title: title, Text: doc.Text}}
	meta := domain.DocumentMeta{Title: title, TotalUnits: 1}
	return units, meta.WithDefaults(), nil
}
