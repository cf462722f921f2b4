package driven

import "context"

// AnswerSynthesizer turns a question and retrieved context into an answer.
// This is an optional service - when nil, the orchestrator answers with the
// retrieved context only.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
type AnswerSynthesizer interface {
	// Synthesize returns an answer grounded in contextBlock.
	Synthesize(ctx context.Context, question, contextBlock string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
