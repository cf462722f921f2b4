// Package filesystem stages uploaded documents into a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Stager implements the interface.
var _ driven.FileStager = (*Stager)(nil)

// MaxAttempts bounds the collision suffixes tried for one name.
const MaxAttempts = 100

// Stager copies files into a documents directory.
type Stager struct {
	dir string
}

// NewStager creates a stager over dir. If dir is empty, defaults to
// ~/.docqa/documents. The directory is created on first Stage.
func NewStager(dir string) (*Stager, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".docqa", "documents")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve documents directory: %w", err)
	}
	return &Stager{dir: abs}, nil
}

// Dir returns the documents directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies src to the documents directory as displayName. A taken
// name becomes name_1.ext, name_2.ext and so on, up to MaxAttempts.
func (s *Stager) Stage(ctx context.Context, src, displayName string) (string, string, error) {
	name, err := cleanName(displayName)
	if err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", "", fmt.Errorf("create documents directory: %w", err)
	}

	out, chosen, err := s.create(name)
	if err != nil {
		return "", "", err
	}

	dst := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", "", fmt.Errorf("copy %s: %w", chosen, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", "", fmt.Errorf("close %s: %w", chosen, err)
	}

	if chosen != name {
		logger.Info("Saved '%s' as '%s'", name, chosen)
	} else {
		logger.Debug("Saved '%s' in %s", name, s.dir)
	}
	return dst, chosen, nil
}

// create exclusively opens the first free candidate name.
func (s *Stager) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; i <= MaxAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("%w: too many name collisions for %s", domain.ErrInvalidInput, name)
}

// Remove deletes a staged file by name. Missing files are not an error.
func (s *Stager) Remove(name string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", clean, err)
	}
	return nil
}

// List returns the names of staged files, sorted.
func (s *Stager) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// cleanName reduces name to a plain file name within the directory.
func cleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	return base, nil
}
