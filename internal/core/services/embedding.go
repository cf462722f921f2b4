package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// dimensionProbe is embedded to learn the dimension of models that do not
// advertise one.
const dimensionProbe = "dimension probe"

// EmbeddingGenerator owns the embedding model. The model is loaded on first
// use and reused by every later call. A failed load is not cached.
type EmbeddingGenerator struct {
	loader    driven.ModelLoader
	batchSize int

	mu        sync.Mutex
	model     driven.EmbeddingModel
	dimension int
}

// NewEmbeddingGenerator creates a generator loading its model with loader.
// batchSize <= 0 uses domain.DefaultEmbedBatch.
func NewEmbeddingGenerator(loader driven.ModelLoader, batchSize int) *EmbeddingGenerator {
	if batchSize <= 0 {
		batchSize = domain.DefaultEmbedBatch
	}
	return &EmbeddingGenerator{
		loader:    loader,
		batchSize: batchSize,
	}
}

// NewEmbeddingGeneratorWithModel creates a generator around an already
// loaded model.
func NewEmbeddingGeneratorWithModel(model driven.EmbeddingModel, batchSize int) *EmbeddingGenerator {
	g := NewEmbeddingGenerator(func(context.Context) (driven.EmbeddingModel, error) {
		return model, nil
	}, batchSize)
	g.model = model
	return g
}

// BatchSize returns the default batch size.
func (g *EmbeddingGenerator) BatchSize() int {
	return g.batchSize
}

// Loaded reports whether the model is currently loaded.
func (g *EmbeddingGenerator) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model != nil
}

// load returns the model, loading it if needed.
func (g *EmbeddingGenerator) load(ctx context.Context) (driven.EmbeddingModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.model != nil {
		return g.model, nil
	}
	if g.loader == nil {
		return nil, fmt.Errorf("%w: no model loader configured", domain.ErrModelUnavailable)
	}

	logger.Debug("Loading embedding model")
	model, err := g.loader(ctx)
	if err != nil {
		logger.Warn("Embedding model failed to load: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: loader returned no model", domain.ErrModelUnavailable)
	}
	logger.Debug("Embedding model loaded: %s", model.ModelName())
	g.model = model
	return model, nil
}

// Embed returns one vector per text, in input order. Texts are sent in
// batches of batchSize (the configured size when <= 0). Empty input
// returns an empty result without loading the model.
func (g *EmbeddingGenerator) Embed(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = g.batchSize
	}

	model, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]

		logger.Debug("Embedding batch %d-%d of %d", start, end, len(texts))
		out, err := model.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: embed batch at %d: %w", domain.ErrEmbeddingUnavailable, start, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: model returned %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(out), len(batch))
		}
		for i, v := range out {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty vector for text %d", domain.ErrEmbeddingUnavailable, start+i)
			}
		}
		vectors = append(vectors, out...)
	}

	g.rememberDimension(len(vectors[0]))
	return vectors, nil
}

// EmbedOne embeds a single text.
func (g *EmbeddingGenerator) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the embedding length, loading the model if needed.
// Models that do not advertise a dimension are probed once.
func (g *EmbeddingGenerator) Dimension(ctx context.Context) (int, error) {
	model, err := g.load(ctx)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	known := g.dimension
	g.mu.Unlock()
	if known > 0 {
		return known, nil
	}

	if d := model.Dimensions(); d > 0 {
		g.rememberDimension(d)
		return d, nil
	}

	vector, err := g.EmbedOne(ctx, dimensionProbe)
	if err != nil {
		return 0, err
	}
	return len(vector), nil
}

func (g *EmbeddingGenerator) rememberDimension(d int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dimension == 0 {
		g.dimension = d
	}
}

// ModelName returns the loaded model's name, or "" before the first load.
func (g *EmbeddingGenerator) ModelName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model == nil {
		return ""
	}
	return g.model.ModelName()
}

// Ping loads the model and checks that it is reachable.
func (g *EmbeddingGenerator) Ping(ctx context.Context) error {
	model, err := g.load(ctx)
	if err != nil {
		return err
	}
	if err := model.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// Close releases the model. A later call loads it again.
func (g *EmbeddingGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.model == nil {
		return nil
	}
	err := g.model.Close()
	g.model = nil
	g.dimension = 0
	return err
}
