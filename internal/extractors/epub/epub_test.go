package epub

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const bookOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:creator>Ana Autora</dc:creator>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/chapter_two.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch3" href="text/missing.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch4" href="text/ch4.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch5" href="text/ch5.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch6" href="text/appendix_notes.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="ch3"/>
    <itemref idref="css"/>
    <itemref idref="ch4"/>
    <itemref idref="ch5"/>
    <itemref idref="ch6"/>
  </spine>
</package>`

const bookNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="p2">
        <navLabel><text>Second Chapter</text></navLabel>
        <content src="text/chapter_two.xhtml#start"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`

const navXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Navigation</title></head>
<body>
  <nav epub:type="toc"><ol>
    <li><a href="text/ch1.xhtml">Ignored Because NCX Wins</a></li>
  </ol></nav>
</body>
</html>`

func xhtml(head, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head>` + head + `</head><body>` + body + `</body></html>`
}

func writeEPUB(t *testing.T, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	mt, err := w.Create("mimetype")
	require.NoError(t, err)
	_, _ = mt.Write([]byte("application/epub+zip"))
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, _ = fw.Write([]byte(content))
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtract_Book(t *testing.T) {
	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      bookOPF,
		"OEBPS/toc.ncx":          bookNCX,
		"OEBPS/nav.xhtml":        navXHTML,
		"OEBPS/style.css":        "p { margin: 0 }",
		"OEBPS/text/ch1.xhtml": xhtml(`<title>Doc Title One</title><style>p{}</style>`,
			`<h1>One</h1><p>It was a bright cold day.</p><script>track()</script>`),
		"OEBPS/text/chapter_two.xhtml":    xhtml(``, `<p id="start">Second text.</p>`),
		"OEBPS/text/ch4.xhtml":            xhtml(`<title>Fourth Title</title>`, `<h1>Ignored</h1><p>Four.</p>`),
		"OEBPS/text/ch5.xhtml":            xhtml(``, `<h1>Fifth Heading</h1><p>Five.</p>`),
		"OEBPS/text/appendix_notes.xhtml": xhtml(``, `<p>Notes.</p>`),
	})

	var calls [][2]int
	units, meta, err := New().Extract(context.Background(), path, func(ordinal, total int) {
		calls = append(calls, [2]int{ordinal, total})
	})
	require.NoError(t, err)

	assert.Equal(t, "The Test Book", meta.Title)
	assert.Equal(t, "Ana Autora", meta.Author)
	assert.Equal(t, 6, meta.TotalUnits)

	require.Len(t, units, 5)

	assert.Equal(t, 1, units[0].Ordinal)
	assert.Equal(t, "Chapter One", units[0].Title)
	assert.Equal(t, "One\nIt was a bright cold day.", units[0].Text)
	assert.NotContains(t, units[0].Text, "track")

	assert.Equal(t, 2, units[1].Ordinal)
	assert.Equal(t, "Second Chapter", units[1].Title)
	assert.Equal(t, "Second text.", units[1].Text)

	// missing.xhtml is skipped without reusing ordinal 3
	assert.Equal(t, 4, units[2].Ordinal)
	assert.Equal(t, "Fourth Title", units[2].Title)

	assert.Equal(t, 5, units[3].Ordinal)
	assert.Equal(t, "Fifth Heading", units[3].Title)

	assert.Equal(t, 6, units[4].Ordinal)
	assert.Equal(t, "Appendix Notes", units[4].Title)

	assert.Equal(t, [][2]int{{1, 6}, {2, 6}, {4, 6}, {5, 6}, {6, 6}}, calls)
}

func TestExtract_NavTOCWithoutNCX(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="c%201.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="nav"/><itemref idref="c1"/></spine>
</package>`
	nav := `<html xmlns:epub="http://www.idpf.org/2007/ops"><body>
<nav epub:type="landmarks"><a href="nav.xhtml">Landmarks</a></nav>
<nav epub:type="toc"><ol><li><a href="c%201.xhtml#top"> Opening
   Words </a></li></ol></nav>
</body></html>`

	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`,
		"content.opf":            opf,
		"nav.xhtml":              nav,
		"c 1.xhtml":              xhtml(``, `<p>Hello.</p>`),
	})

	units, meta, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, "Opening Words", units[0].Title)
	assert.Equal(t, "Hello.", units[0].Text)
	assert.Equal(t, domain.UnknownValue, meta.Title)
	assert.Equal(t, domain.UnknownValue, meta.Author)
}

func TestExtract_ManifestFallback(t *testing.T) {
	opf := `<package><metadata><title>Loose</title></metadata>
  <manifest>
    <item id="a" href="a.html" media-type="text/html"/>
    <item id="img" href="cover.png" media-type="image/png"/>
    <item id="b" href="b.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine/>
</package>`

	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`,
		"content.opf":            opf,
		"a.html":                 `<p>A</p>`,
		"b.xhtml":                `<p>B</p>`,
	})

	units, meta, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)

	require.Len(t, units, 2)
	assert.Equal(t, "A", units[0].Text)
	assert.Equal(t, "B", units[1].Text)
	assert.Equal(t, "Loose", meta.Title)
	assert.Equal(t, 2, meta.TotalUnits)
}

func TestExtract_MissingContainer(t *testing.T) {
	path := writeEPUB(t, map[string]string{"OEBPS/content.opf": bookOPF})

	_, _, err := New().Extract(context.Background(), path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestExtract_NotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.epub")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, _, err := New().Extract(context.Background(), path, nil)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"OEBPS/content.opf", "text/ch1.xhtml", "OEBPS/text/ch1.xhtml"},
		{"OEBPS/toc.ncx", "text/ch1.xhtml#frag", "OEBPS/text/ch1.xhtml"},
		{"content.opf", "c%201.xhtml", "c 1.xhtml"},
		{"OEBPS/text/nav.xhtml", "../ch2.xhtml", "OEBPS/ch2.xhtml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolve(tt.base, tt.href))
	}
}
