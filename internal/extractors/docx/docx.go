// Package docx extracts text from Office Open XML word processing files.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields one content unit per top-level heading section.
// A document without Heading1 or Title paragraphs is a single unit.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "docx"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// Extract reads word/document.xml and docProps/core.xml from the archive.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("docx", path, err)
	}
	defer reader.Close()

	content, err := readEntry(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("docx", path, err)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, domain.DocumentMeta{}, fmt.Errorf("%w: parse docx body: %w", domain.ErrExtraction, err)
	}

	meta := readCore(&reader.Reader)
	if meta.Title == "" {
		meta.Title = extractors.TitleFromFilename(path)
	}

	units := splitSections(doc.Body.Paragraphs, meta.Title)
	meta.TotalUnits = len(units)

	for i := range units {
		if err := ctx.Err(); err != nil {
			return nil, domain.DocumentMeta{}, err
		}
		if progress != nil {
			progress(i+1, len(units))
		}
	}

	return units, meta.WithDefaults(), nil
}

func readEntry(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func (p paragraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			sb.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (p paragraph) isSectionHeading() bool {
	switch strings.ToLower(p.Props.Style.Val) {
	case "heading1", "title":
		return true
	}
	return false
}

// splitSections groups paragraphs under their preceding section heading.
// Paragraphs before the first heading form a unit titled fallbackTitle.
func splitSections(paras []paragraph, fallbackTitle string) []domain.ContentUnit {
	var units []domain.ContentUnit
	title := fallbackTitle
	var lines []string

	flush := func() {
		if len(lines) == 0 && len(units) == 0 && title == fallbackTitle {
			return
		}
		units = append(units, domain.ContentUnit{
			Ordinal: len(units) + 1,
			Title:   title,
			Text:    strings.Join(lines, "\n"),
		})
		lines = nil
	}

	for _, p := range paras {
		text := p.text()
		if p.isSectionHeading() && text != "" {
			flush()
			title = text
			continue
		}
		if text != "" {
			lines = append(lines, text)
		}
	}
	flush()

	if len(units) == 0 {
		units = append(units, domain.ContentUnit{Ordinal: 1, Title: fallbackTitle})
	}
	return units
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

func readCore(reader *zip.Reader) domain.DocumentMeta {
	content, err := readEntry(reader, "docProps/core.xml")
	if err != nil {
		return domain.DocumentMeta{}
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return domain.DocumentMeta{}
	}
	return domain.DocumentMeta{
		Title:  strings.TrimSpace(core.Title),
		Author: strings.TrimSpace(core.Creator),
	}
}
