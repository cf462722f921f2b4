// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingModel generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (mxbai-embed-large, nomic-embed-text)
//   - Local models via inference servers
type EmbeddingModel interface {
	// EmbedBatch generates one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size, or 0 when the model
	// does not advertise one.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the model is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ModelLoader constructs and verifies an embedding model.
// Loading may be slow; callers memoise the result.
type ModelLoader func(ctx context.Context) (EmbeddingModel, error)
