package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize          = "chunking.size"
	keyChunkOverlap       = "chunking.overlap"
	keyTopK               = "retrieval.top_k"
	keyExcerptLength      = "retrieval.excerpt_length"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyVectorBackend      = "vector_store.backend"
	keyVectorMetric       = "vector_store.metric"
	keyVectorCollection   = "vector_store.collection"
	keyVectorDSN          = "vector_store.dsn"
	keyStorageDataDir     = "storage.data_dir"
	keyStorageDocumentDir = "storage.documents_dir"
	keyPipelineProcessors = "pipeline.processors"
)

// Environment variables consulted when the matching key is empty.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey    = "DOCQA_OPENAI_API_KEY"
	EnvAnthropicAPIKey = "DOCQA_ANTHROPIC_API_KEY"
	EnvPGDSN           = "DOCQA_PG_DSN"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validate    *validator.Validate
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validate:    validator.New(),
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// API keys and the Postgres DSN fall back to DOCQA_* environment variables.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyTopK, defaults.Retrieval.TopK),
			ExcerptLength: s.getInt(keyExcerptLength, defaults.Retrieval.ExcerptLength),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			BatchSize: s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    s.getBackend(defaults.VectorStore.Backend),
			Metric:     s.getMetric(defaults.VectorStore.Metric),
			Collection: s.getString(keyVectorCollection, defaults.VectorStore.Collection),
			DSN:        s.configStore.GetString(keyVectorDSN),
		},
		Storage: domain.StorageSettings{
			DataDir:      s.configStore.GetString(keyStorageDataDir),
			DocumentsDir: s.configStore.GetString(keyStorageDocumentDir),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKeyFor(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKeyFor(settings.LLM.Provider)
	}
	if settings.VectorStore.DSN == "" {
		settings.VectorStore.DSN = s.getenv(EnvPGDSN)
	}
}

func (s *SettingsService) envKeyFor(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicAPIKey)
	default:
		return ""
	}
}

// Save persists application settings. Empty API keys and DSNs are not
// written so values supplied through the environment stay out of the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyChunkSize, settings.Chunking.Size, false},
		{keyChunkOverlap, settings.Chunking.Overlap, false},
		{keyTopK, settings.Retrieval.TopK, false},
		{keyExcerptLength, settings.Retrieval.ExcerptLength, false},
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{keyEmbedBatchSize, settings.Embedding.BatchSize, false},
		{keyLLMProvider, settings.LLM.Provider.String(), false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{keyVectorBackend, settings.VectorStore.Backend.String(), false},
		{keyVectorMetric, settings.VectorStore.Metric.String(), false},
		{keyVectorCollection, settings.VectorStore.Collection, false},
		{keyVectorDSN, settings.VectorStore.DSN, settings.VectorStore.DSN == ""},
		{keyStorageDataDir, settings.Storage.DataDir, settings.Storage.DataDir == ""},
		{keyStorageDocumentDir, settings.Storage.DocumentsDir, settings.Storage.DocumentsDir == ""},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKeyFor(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, provider, domain.DefaultEmbeddingModels())
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKeyFor(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, provider, domain.DefaultLLMModels())
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func modelOrDefault(model string, provider domain.AIProvider, defaults map[domain.AIProvider]string) string {
	if model != "" {
		return model
	}
	return defaults[provider]
}

// baseURLFor keeps a custom URL for local providers and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return domain.DefaultOllamaURL
	}
	return current
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.ValidateSettings(settings)
}

// ValidateSettings checks settings against their validation rules and the
// API key requirements of the chosen providers.
func (s *SettingsService) ValidateSettings(settings *domain.AppSettings) error {
	fields := make(map[string]string)

	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		for _, e := range verrs {
			fields[e.Namespace()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
	}

	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		fields["AppSettings.Embedding.APIKey"] = "required for " + settings.Embedding.Provider.String()
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		fields["AppSettings.LLM.APIKey"] = "required for " + settings.LLM.Provider.String()
	}

	if len(fields) > 0 {
		return &domain.SettingsValidationError{Fields: fields}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetPipelineConfig returns the post-processor chain. The chunker options
// come from the chunking settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice(keyPipelineProcessors); len(processors) > 0 {
		cfg.Processors = processors
	}

	settings, err := s.Get()
	if err == nil {
		cfg.Options["chunk_size"] = settings.Chunking.Size
		cfg.Options["overlap"] = settings.Chunking.Overlap
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero is getInt for keys where an explicit 0 is meaningful.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getMetric(defaultVal domain.DistanceMetric) domain.DistanceMetric {
	metric := domain.DistanceMetric(s.configStore.GetString(keyVectorMetric))
	if !metric.IsValid() {
		return defaultVal
	}
	return metric
}
