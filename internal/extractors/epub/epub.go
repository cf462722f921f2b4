// Package epub extracts sections from EPUB 2 and EPUB 3 books.
//
// Sections follow the spine reading order. Navigation documents are
// skipped; a book whose spine yields no documents falls back to every
// document in the manifest.
package epub

import (
	"archive/zip"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/extractors/htmltext"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor yields one content unit per spine document.
type Extractor struct{}

// New creates an EPUB extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "epub"
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".epub"}
}

// Extract reads the book at path. A section that cannot be read or parsed
// is logged and skipped; its ordinal is not reused.
func (e *Extractor) Extract(
	ctx context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("epub", path, err)
	}
	defer zr.Close()

	a := newArchive(&zr.Reader)

	opfPath, err := a.rootfile()
	if err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("epub", path, err)
	}
	var pkg packageDoc
	if err := a.decode(opfPath, &pkg); err != nil {
		return nil, domain.DocumentMeta{}, extractors.OpenError("epub", path, err)
	}
	for i := range pkg.Items {
		pkg.Items[i].name = resolve(opfPath, pkg.Items[i].Href)
	}

	toc := readTOC(a, &pkg)
	items := contentItems(&pkg)
	total := len(items)

	units := make([]domain.ContentUnit, 0, total)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, domain.DocumentMeta{}, err
		}

		unit, err := extractItem(a, item, toc)
		if err != nil {
			logger.Warn("epub %s: skipping section %s: %v", path, item.name, err)
			continue
		}
		unit.Ordinal = i + 1
		units = append(units, unit)

		if progress != nil {
			progress(unit.Ordinal, total)
		}
	}

	meta := domain.DocumentMeta{
		Title:      firstNonBlank(pkg.Titles),
		Author:     firstNonBlank(pkg.Creators),
		TotalUnits: total,
	}
	return units, meta.WithDefaults(), nil
}

// contentItems returns the spine documents in reading order, excluding
// navigation. When the spine yields none, every manifest document is used.
func contentItems(pkg *packageDoc) []manifestItem {
	byID := make(map[string]manifestItem, len(pkg.Items))
	for _, item := range pkg.Items {
		byID[item.ID] = item
	}

	var items []manifestItem
	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := byID[ref.IDRef]
		if ok && item.isDocument() && !item.isNav() {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, item := range pkg.Items {
		if item.isDocument() && !item.isNav() {
			items = append(items, item)
		}
	}
	return items
}

func extractItem(a *archive, item manifestItem, toc map[string]string) (domain.ContentUnit, error) {
	data, err := a.read(item.name)
	if err != nil {
		return domain.ContentUnit{}, err
	}
	doc, err := htmltext.ParseBytes(data)
	if err != nil {
		return domain.ContentUnit{}, fmt.Errorf("parse: %w", err)
	}

	title := toc[item.name]
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = doc.H1
	}
	if title == "" {
		title = extractors.SlugTitle(item.name)
	}

	return domain.ContentUnit{Title: title, Text: doc.Text}, nil
}

// readTOC maps archive paths to their first table of contents label,
// reading the NCX first and the EPUB 3 navigation document second.
func readTOC(a *archive, pkg *packageDoc) map[string]string {
	toc := make(map[string]string)
	add := func(name, label string) {
		label = strings.Join(strings.Fields(label), " ")
		if label == "" {
			return
		}
		if _, seen := toc[name]; !seen {
			toc[name] = label
		}
	}

	for _, item := range pkg.Items {
		isNCX := item.MediaType == "application/x-dtbncx+xml" || (pkg.Spine.Toc != "" && item.ID == pkg.Spine.Toc)
		if !isNCX {
			continue
		}
		var n ncx
		if err := a.decode(item.name, &n); err != nil {
			logger.Debug("epub: ignoring ncx %s: %v", item.name, err)
			break
		}
		var walk func([]navPoint)
		walk = func(points []navPoint) {
			for _, p := range points {
				add(resolve(item.name, p.Content.Src), p.Label)
				walk(p.Children)
			}
		}
		walk(n.Points)
		break
	}

	for _, item := range pkg.Items {
		if !item.isNav() || !item.isDocument() {
			continue
		}
		data, err := a.read(item.name)
		if err != nil {
			logger.Debug("epub: ignoring nav %s: %v", item.name, err)
			continue
		}
		for _, link := range navLinks(data) {
			add(resolve(item.name, link.href), link.label)
		}
	}

	return toc
}

type navLink struct {
	href  string
	label string
}

// navLinks returns the anchors of the toc <nav> element, or of every <nav>
// when none is typed as toc.
func navLinks(data []byte) []navLink {
	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil
	}

	var typed, untyped []navLink
	var traverse func(n *html.Node, inNav, isToc bool)
	traverse = func(n *html.Node, inNav, isToc bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Nav:
				inNav = true
				isToc = strings.Contains(attr(n, "type"), "toc")
			case atom.A:
				if inNav {
					if href := attr(n, "href"); href != "" {
						link := navLink{href: href, label: textOf(n)}
						if isToc {
							typed = append(typed, link)
						} else {
							untyped = append(untyped, link)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c, inNav, isToc)
		}
	}
	traverse(root, false, false)

	if len(typed) > 0 {
		return typed
	}
	return untyped
}

// attr returns the attribute whose key, after any namespace prefix, is key.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		k := a.Key
		if i := strings.LastIndexByte(k, ':'); i >= 0 {
			k = k[i+1:]
		}
		if k == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func firstNonBlank(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
