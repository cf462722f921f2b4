package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Normalizer turns a document file into a flat, ordered chunk list.
type Normalizer struct {
	extractors driven.ExtractorRegistry
	pipeline   driven.PostProcessorPipeline
}

// NewNormalizer creates a normalizer dispatching through extractors and
// chunking every unit with pipeline.
func NewNormalizer(extractors driven.ExtractorRegistry, pipeline driven.PostProcessorPipeline) *Normalizer {
	return &Normalizer{
		extractors: extractors,
		pipeline:   pipeline,
	}
}

// SupportedExtensions returns the file extensions that can be normalised.
func (n *Normalizer) SupportedExtensions() []string {
	return n.extractors.SupportedExtensions()
}

// Normalize extracts and chunks the file at path. progress is forwarded to
// the extractor unchanged and may be nil.
//
// A document whose units are all blank yields an empty, non-nil slice.
func (n *Normalizer) Normalize(ctx context.Context, path string, progress driven.UnitProgressFunc) ([]domain.Chunk, error) {
	return n.NormalizeAs(ctx, path, "", progress)
}

// NormalizeAs is Normalize recording displayName as the chunk filename.
// An empty displayName uses the base name of path.
func (n *Normalizer) NormalizeAs(
	ctx context.Context,
	path, displayName string,
	progress driven.UnitProgressFunc,
) ([]domain.Chunk, error) {
	extractor, err := n.extractors.ForPath(path)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", domain.ErrExtraction, path, err)
	}
	if displayName == "" {
		displayName = filepath.Base(absPath)
	}

	logger.Debug("Extracting %s with %s extractor", displayName, extractor.Name())
	units, meta, err := extractor.Extract(ctx, absPath, progress)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", displayName, err)
	}
	meta = meta.WithDefaults()

	chunks := make([]domain.Chunk, 0)
	skipped := 0
	for _, unit := range units {
		if unit.IsBlank() {
			skipped++
			continue
		}

		base := domain.ChunkMetadata{
			Filename:       displayName,
			SourcePath:     absPath,
			UnitOrdinal:    unit.Ordinal,
			UnitTitle:      unit.Title,
			DocumentTitle:  meta.Title,
			DocumentAuthor: meta.Author,
		}

		unitChunks, err := n.pipeline.Process(ctx, &driven.UnitText{Text: unit.Text, Base: base})
		if err != nil {
			return nil, fmt.Errorf("chunk %s unit %d: %w", displayName, unit.Ordinal, err)
		}
		chunks = append(chunks, unitChunks...)
	}

	logger.Debug("Normalised %s: %d units (%d blank), %d chunks", displayName, len(units), skipped, len(chunks))
	return chunks, nil
}
