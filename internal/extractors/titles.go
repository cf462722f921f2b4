package extractors

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// TitleFromFilename derives a title from a file name: extension dropped,
// underscores and hyphens turned into spaces.
func TitleFromFilename(path string) string {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return strings.TrimSpace(filename)
}

// SlugTitle is TitleFromFilename with every word title-cased,
// so "chapter_01-intro.xhtml" becomes "Chapter 01 Intro".
func SlugTitle(path string) string {
	words := strings.Fields(TitleFromFilename(path))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// OpenError wraps cause as an extraction failure for the named file.
func OpenError(format, path string, cause error) error {
	return fmt.Errorf("%w: open %s %s: %w", domain.ErrExtraction, format, filepath.Base(path), cause)
}

// RecoverPanic converts a panic raised by a third-party parser into an
// extraction error. Use as: defer extractors.RecoverPanic("pdf", path, &err).
func RecoverPanic(format, path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: parse %s %s: %v", domain.ErrExtraction, format, filepath.Base(path), r)
	}
}
