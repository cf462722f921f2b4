package plaintext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestExtract_SingleUnit(t *testing.T) {
	path := writeFile(t, "meeting-notes.txt", []byte("  line one\r\nline two  \n"))

	calls := 0
	units, meta, err := New().Extract(context.Background(), path, func(ordinal, total int) {
		calls++
		assert.Equal(t, 1, ordinal)
		assert.Equal(t, 1, total)
	})
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, "line one\nline two", units[0].Text)
	assert.Equal(t, "meeting notes", units[0].Title)
	assert.Equal(t, "meeting notes", meta.Title)
	assert.Equal(t, domain.UnknownValue, meta.Author)
	assert.Equal(t, 1, calls)
}

func TestExtract_FormFeedPages(t *testing.T) {
	path := writeFile(t, "dump.txt", []byte("first\fsecond\f\fthird"))

	units, meta, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)

	require.Len(t, units, 4)
	assert.Equal(t, "Page 1", units[0].Title)
	assert.Equal(t, "second", units[1].Text)
	assert.True(t, units[2].IsBlank())
	assert.Equal(t, 4, units[3].Ordinal)
	assert.Equal(t, 4, meta.TotalUnits)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})

	units, _, err := New().Extract(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok!", units[0].Text)
}

func TestExtract_Missing(t *testing.T) {
	_, _, err := New().Extract(context.Background(), "/nonexistent/a.txt", nil)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}
