// Package htmltext extracts visible text and headings from HTML and XHTML
// documents.
package htmltext

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the text content of a parsed HTML document.
type Document struct {
	// Title is the text of <title>, empty when absent.
	Title string
	// H1 is the text of the first <h1>, empty when absent.
	H1 string
	// Text holds the non-empty text nodes of <body>, trimmed and joined
	// with newlines.
	Text string
}

// skipped elements never contribute text. <head> is still walked for
// <title>; its text is dropped because it lies outside <body>.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	var lines []string

	var traverse func(n *html.Node, inBody bool)
	traverse = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if doc.Title == "" {
					doc.Title = collapse(nodeText(n))
				}
			case atom.H1:
				if doc.H1 == "" {
					doc.H1 = collapse(nodeText(n))
				}
			}
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Body {
				inBody = true
			}
		}

		if n.Type == html.TextNode && inBody {
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c, inBody)
		}
	}
	traverse(root, false)

	doc.Text = strings.ToValidUTF8(strings.Join(lines, "\n"), "")
	doc.Title = strings.ToValidUTF8(doc.Title, "")
	doc.H1 = strings.ToValidUTF8(doc.H1, "")
	return doc, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// nodeText concatenates every text node beneath n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
