package docx

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

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// createTestDOCX writes a minimal DOCX file and returns its path.
func createTestDOCX(t *testing.T, name, documentXML, coreXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		_, _ = doc.Write([]byte(documentXML))
	}
	if coreXML != "" {
		core, _ := w.Create("docProps/core.xml")
		_, _ = core.Write([]byte(coreXML))
	}
	require.NoError(t, w.Close())
	return path
}

func para(style, text string) string {
	props := ""
	if style != "" {
		props = `<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`
	}
	return `<w:p>` + props + `<w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func body(paras ...string) string {
	s := `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>`
	for _, p := range paras {
		s += p
	}
	return s + `</w:body></w:document>`
}

func TestExtract_SingleUnit(t *testing.T) {
	path := createTestDOCX(t, "quarterly_report.docx", body(para("", "Hello World"), para("", "Second line")), "")

	units, meta, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, 1, units[0].Ordinal)
	assert.Equal(t, "quarterly report", units[0].Title)
	assert.Equal(t, "Hello World\nSecond line", units[0].Text)
	assert.Equal(t, "quarterly report", meta.Title)
	assert.Equal(t, domain.UnknownValue, meta.Author)
	assert.Equal(t, 1, meta.TotalUnits)
}

func TestExtract_Sections(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Operations Manual</dc:title>
<dc:creator>Rui Costa</dc:creator>
</cp:coreProperties>`
	doc := body(
		para("", "Preface text"),
		para("Heading1", "Installation"),
		para("", "Step one"),
		para("Heading2", "Details"),
		para("", "Step two"),
		para("Heading1", "Usage"),
		para("", "Run it"),
	)
	path := createTestDOCX(t, "manual.docx", doc, core)

	var calls []int
	units, meta, err := New().Extract(context.Background(), path, func(ordinal, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, ordinal)
	})
	require.NoError(t, err)

	require.Len(t, units, 3)
	assert.Equal(t, "Operations Manual", units[0].Title)
	assert.Equal(t, "Preface text", units[0].Text)
	assert.Equal(t, "Installation", units[1].Title)
	assert.Equal(t, "Step one\nDetails\nStep two", units[1].Text)
	assert.Equal(t, "Usage", units[2].Title)
	assert.Equal(t, 3, units[2].Ordinal)
	assert.Equal(t, []int{1, 2, 3}, calls)

	assert.Equal(t, "Operations Manual", meta.Title)
	assert.Equal(t, "Rui Costa", meta.Author)
}

func TestExtract_HeadingFirst(t *testing.T) {
	path := createTestDOCX(t, "a.docx", body(para("Title", "Intro"), para("", "Body")), "")

	units, _, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Intro", units[0].Title)
	assert.Equal(t, "Body", units[0].Text)
}

func TestExtract_EmptyBody(t *testing.T) {
	path := createTestDOCX(t, "empty.docx", body(), "")

	units, _, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.True(t, units[0].IsBlank())
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	path := createTestDOCX(t, "nodoc.docx", "", "")

	_, _, err := New().Extract(context.Background(), path, nil)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestExtract_NotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, _, err := New().Extract(context.Background(), path, nil)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}
