// Package pdf extracts page text from PDF files.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields one content unit per PDF page.
type Extractor struct{}

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "pdf"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract reads every page of the PDF at path. A page whose text cannot be
// decoded yields an empty unit rather than failing the document.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) (units []domain.ContentUnit, meta domain.DocumentMeta, err error) {
	defer extractors.RecoverPanic("pdf", path, &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("pdf", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	meta = readInfo(r)
	meta.TotalUnits = total

	units = make([]domain.ContentUnit, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.DocumentMeta{}, err
		}

		units = append(units, domain.ContentUnit{
			Ordinal: i,
			Title:   fmt.Sprintf("Page %d", i),
			Text:    pageText(r, i, path),
		})

		if progress != nil {
			progress(i, total)
		}
	}

	return units, meta.WithDefaults(), nil
}

func pageText(r *pdf.Reader, num int, path string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("pdf %s: page %d unreadable: %v", path, num, rec)
			text = ""
		}
	}()

	page := r.Page(num)
	if page.V.IsNull() {
		return ""
	}

	raw, err := page.GetPlainText(nil)
	if err != nil {
		logger.Warn("pdf %s: page %d: %v", path, num, err)
		return ""
	}
	return strings.TrimSpace(raw)
}

func readInfo(r *pdf.Reader) domain.DocumentMeta {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return domain.DocumentMeta{}
	}
	return domain.DocumentMeta{
		Title:  strings.TrimSpace(info.Key("Title").Text()),
		Author: strings.TrimSpace(info.Key("Author").Text()),
	}
}
