// Package ai builds embedding loaders and answer synthesizers from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// NewModelLoader returns a loader for the configured embedding provider.
// The loader pings the backend, so an unreachable server fails the load
// and the next call retries.
func NewModelLoader(settings domain.EmbeddingSettings) (driven.ModelLoader, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewLoader(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: openai embeddings need an API key", domain.ErrInvalidInput)
		}
		return openaiembed.NewLoader(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrInvalidInput)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// NewSynthesizer creates the configured answer synthesizer and hands it
// prompts. Returns nil when the provider is not configured, so answers
// carry sources only.
func NewSynthesizer(settings domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerSynthesizer, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	var (
		synth driven.AnswerSynthesizer
		err   error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		synth = ollamallm.NewSynthesizer(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		synth, err = openaillm.NewSynthesizer(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		synth, err = anthropicllm.NewSynthesizer(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if aware, ok := synth.(driven.PromptStoreAware); ok && prompts != nil {
		aware.SetPromptStore(prompts)
	}
	return synth, nil
}

// CheckEmbedding loads the configured embedding model once to confirm the
// backend is reachable.
func CheckEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error {
	loader, err := NewModelLoader(settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	model, err := loader(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return model.Close()
}

// CheckLLM pings the configured synthesizer. An unconfigured provider is
// not an error.
func CheckLLM(ctx context.Context, settings domain.LLMSettings) error {
	synth, err := NewSynthesizer(settings, nil)
	if err != nil || synth == nil {
		return err
	}
	defer synth.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return synth.Ping(ctx)
}
