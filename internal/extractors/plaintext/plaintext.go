// Package plaintext extracts text files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields the whole file as one unit. Files containing form feeds,
// as written by most PDF-to-text tools, yield one unit per page instead.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "plaintext"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".txt", ".text"}
}

// Extract reads the file at path.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("text", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.DocumentMeta{}, err
	}

	content := strings.ToValidUTF8(string(data), "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	title := extractors.TitleFromFilename(path)

	var units []domain.ContentUnit
	if pages := strings.Split(content, "\f"); len(pages) > 1 {
		for i, p := range pages {
			units = append(units, domain.ContentUnit{
				Ordinal: i + 1,
				Title:   fmt.Sprintf("Page %d", i+1),
				Text:    strings.TrimSpace(p),
			})
		}
	} else {
		units = []domain.ContentUnit{{Ordinal: 1, Title: title, Text: strings.TrimSpace(content)}}
	}

	for _, u := range units {
		if progress != nil {
			progress(u.Ordinal, len(units))
		}
	}

	meta := domain.DocumentMeta{Title: title, TotalUnits: len(units)}
	return units, meta.WithDefaults(), nil
}
