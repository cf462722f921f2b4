package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

func newTestNormalizer(ext *mockExtractor, size, overlap int) *Normalizer {
	return NewNormalizer(extractors.NewRegistry(ext), postprocessors.NewDefaultPipeline(size, overlap))
}

func TestNormalizer_Normalize_Metadata(t *testing.T) {
	ext := &mockExtractor{
		units: []domain.ContentUnit{
			{Ordinal: 1, Title: "Page 1", Text: "abcdefghij"},
			{Ordinal: 2, Title: "Page 2", Text: "   \n "},
			{Ordinal: 3, Title: "Page 3", Text: "xyz"},
		},
		meta: domain.DocumentMeta{Title: "Book", Author: "Ana"},
	}
	n := newTestNormalizer(ext, 6, 2)

	var progress [][2]int
	chunks, err := n.Normalize(context.Background(), filepath.Join("testdata", "book.pdf"), func(o, total int) {
		progress = append(progress, [2]int{o, total})
	})

	require.NoError(t, err)
	abs, _ := filepath.Abs(filepath.Join("testdata", "book.pdf"))
	assert.Equal(t, []string{abs}, ext.paths, "the extractor receives the absolute path")
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	// "abcdefghij" at size 6, overlap 2: abcdef, efghij
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdef", chunks[0].Text)
	assert.Equal(t, "efghij", chunks[1].Text)
	assert.Equal(t, "xyz", chunks[2].Text)

	assert.Equal(t, domain.ChunkMetadata{
		Filename:       "book.pdf",
		SourcePath:     abs,
		UnitOrdinal:    1,
		UnitTitle:      "Page 1",
		DocumentTitle:  "Book",
		DocumentAuthor: "Ana",
		SequenceID:     1,
	}, chunks[1].Metadata)
	assert.Equal(t, 3, chunks[2].Metadata.UnitOrdinal, "blank units are skipped, ordinals kept")
	assert.Equal(t, 0, chunks[2].Metadata.SequenceID)
}

func TestNormalizer_NormalizeAs_DisplayName(t *testing.T) {
	ext := &mockExtractor{units: []domain.ContentUnit{{Ordinal: 1, Title: "Page 1", Text: "hello"}}}
	n := newTestNormalizer(ext, 1000, 100)

	chunks, err := n.NormalizeAs(context.Background(), "/tmp/upload_123.pdf", "Relatório.pdf", nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Relatório.pdf", chunks[0].Metadata.Filename)
	assert.Equal(t, "/tmp/upload_123.pdf", chunks[0].Metadata.SourcePath)
}

func TestNormalizer_DefaultsUnknownMeta(t *testing.T) {
	ext := &mockExtractor{units: []domain.ContentUnit{{Ordinal: 1, Title: "Page 1", Text: "hello"}}}
	n := newTestNormalizer(ext, 1000, 100)

	chunks, err := n.Normalize(context.Background(), "a.pdf", nil)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.UnknownValue, chunks[0].Metadata.DocumentTitle)
	assert.Equal(t, domain.UnknownValue, chunks[0].Metadata.DocumentAuthor)
}

func TestNormalizer_AllBlankYieldsEmptySlice(t *testing.T) {
	ext := &mockExtractor{units: []domain.ContentUnit{{Ordinal: 1, Text: " "}, {Ordinal: 2, Text: "\t"}}}
	n := newTestNormalizer(ext, 1000, 100)

	chunks, err := n.Normalize(context.Background(), "scan.pdf", nil)

	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestNormalizer_UnsupportedType(t *testing.T) {
	n := newTestNormalizer(&mockExtractor{}, 1000, 100)

	_, err := n.Normalize(context.Background(), "notes.odt", nil)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestNormalizer_ExtractorError(t *testing.T) {
	cause := errors.New("bad xref")
	n := newTestNormalizer(&mockExtractor{err: errors.Join(domain.ErrExtraction, cause)}, 1000, 100)

	_, err := n.Normalize(context.Background(), "broken.pdf", nil)

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestNormalizer_SupportedExtensions(t *testing.T) {
	n := newTestNormalizer(&mockExtractor{exts: []string{".epub", ".pdf"}}, 1000, 100)

	assert.Equal(t, []string{".epub", ".pdf"}, n.SupportedExtensions())
}
