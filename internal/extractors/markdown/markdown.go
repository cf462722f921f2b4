// Package markdown extracts sections from Markdown files.
package markdown

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields one content unit per level one or two heading.
type Extractor struct{}

// New creates a Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "markdown"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract splits the file into heading sections and strips formatting.
// The document title is the first "# " heading, else the file name.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("markdown", path, err)
	}
	content := strings.ToValidUTF8(string(data), "")

	sections := splitSections(content)
	meta := domain.DocumentMeta{Title: extractTitle(content, path)}

	units := make([]domain.ContentUnit, 0, len(sections))
	for i, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, domain.DocumentMeta{}, err
		}
		title := s.heading
		if title == "" {
			title = meta.Title
		}
		units = append(units, domain.ContentUnit{
			Ordinal: i + 1,
			Title:   title,
			Text:    stripMarkdown(s.body),
		})
		if progress != nil {
			progress(i+1, len(sections))
		}
	}
	meta.TotalUnits = len(units)

	return units, meta.WithDefaults(), nil
}

type section struct {
	heading string
	body    string
}

var sectionHeading = regexp.MustCompile(`^#{1,2}\s+(.+?)\s*#*\s*$`)

// splitSections cuts content at level one and two ATX headings outside
// fenced code blocks. Leading text before any heading is its own section.
func splitSections(content string) []section {
	var sections []section
	var cur section
	var body []string
	inFence := false
	started := false

	flush := func() {
		cur.body = strings.Join(body, "\n")
		if started || strings.TrimSpace(cur.body) != "" {
			sections = append(sections, cur)
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence {
			if m := sectionHeading.FindStringSubmatch(line); m != nil {
				flush()
				cur = section{heading: m[1]}
				started = true
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	if len(sections) == 0 {
		sections = append(sections, section{})
	}
	return sections
}

// extractTitle returns the first H1 heading or falls back to the file name.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return extractors.TitleFromFilename(path)
}

var (
	codeBlock     = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis      = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	italic        = regexp.MustCompile(`(^|\W)[*_]([^*_\n]+)[*_](\W|$)`)
	blockquote    = regexp.MustCompile(`(?m)^>\s*`)
	hr            = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting. Code block and inline
// code contents are kept since they often carry the answer to a question.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = italic.ReplaceAllString(content, "$1$2$3")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

