package domain

import (
	"fmt"
	"sort"
	"strings"
)

const unknownDescription = "Unknown"

// DefaultOllamaURL is the endpoint of a local Ollama instance.
const DefaultOllamaURL = "http://localhost:11434"

// Default pipeline parameters.
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 100
	DefaultTopK          = 3
	DefaultEmbedBatch    = 32
	DefaultExcerptLength = 250
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// IsLocal returns true if the provider runs on the user's machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// DistanceMetric selects how vector distance is computed.
type DistanceMetric string

// Available distance metrics.
const (
	// DistanceCosine is 1 - cosine similarity.
	DistanceCosine DistanceMetric = "cosine"

	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "l2"
)

// IsValid returns true if the metric is recognised.
func (m DistanceMetric) IsValid() bool {
	return m == DistanceCosine || m == DistanceL2
}

// String returns the string representation.
func (m DistanceMetric) String() string {
	return string(m)
}

// VectorBackend selects the collection implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendPGVector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendPGVector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// ChunkingSettings controls how unit text is split.
type ChunkingSettings struct {
	// Size is the window length in characters.
	Size int `validate:"gt=0"`

	// Overlap is the number of characters shared by adjacent windows.
	Overlap int `validate:"gte=0,ltfield=Size"`
}

// RetrievalSettings controls query-time behaviour.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `validate:"gt=0"`

	// ExcerptLength is the number of characters kept in source excerpts.
	ExcerptLength int `validate:"gt=0"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `validate:"required,oneof=ollama openai"`

	// Model is the embedding model name.
	Model string `validate:"required"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int `validate:"gt=0"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer synthesis provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider `validate:"required,oneof=ollama openai anthropic"`

	// Model is the LLM model name.
	Model string `validate:"required"`

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds collection configuration.
type VectorStoreSettings struct {
	// Backend selects the collection implementation.
	Backend VectorBackend `validate:"required,oneof=sqlite memory pgvector"`

	// Metric is the distance function used for ranking.
	Metric DistanceMetric `validate:"required,oneof=cosine l2"`

	// Collection names the logical collection.
	Collection string `validate:"required"`

	// DSN is the Postgres connection string (pgvector only).
	DSN string `validate:"required_if=Backend pgvector"`
}

// StorageSettings holds on-disk locations.
type StorageSettings struct {
	// DataDir holds the embedded database.
	DataDir string

	// DocumentsDir receives staged uploads.
	DocumentsDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Storage     StorageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Both AI providers default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK:          DefaultTopK,
			ExcerptLength: DefaultExcerptLength,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize: DefaultEmbedBatch,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Metric:     DistanceCosine,
			Collection: "docqa_documents",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer synthesis.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "mxbai-embed-large",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3:8b-instruct-q5_k_m",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig names the chunk post-processors and their options.
type PipelineConfig struct {
	// Processors lists processor names in execution order.
	Processors []string

	// Options is shared by every processor (e.g. chunk_size, overlap).
	Options map[string]any
}

// DefaultPipelineConfig returns the chunker followed by the blank filter.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "blank"},
		Options: map[string]any{
			"chunk_size": DefaultChunkSize,
			"overlap":    DefaultChunkOverlap,
		},
	}
}

// SettingsValidationError lists the settings fields that failed validation.
// It matches ErrValidation under errors.Is.
type SettingsValidationError struct {
	// Fields maps a dotted field path to the failed rule.
	Fields map[string]string
}

// Error returns every failing field, sorted.
func (e *SettingsValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", k, e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Unwrap returns ErrValidation.
func (e *SettingsValidationError) Unwrap() error {
	return ErrValidation
}
