// Command docqa indexes documents and answers questions about them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/staging/filesystem"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/pgvector"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/extractors/docx"
	"github.com/custodia-labs/docqa/internal/extractors/epub"
	"github.com/custodia-labs/docqa/internal/extractors/html"
	"github.com/custodia-labs/docqa/internal/extractors/markdown"
	"github.com/custodia-labs/docqa/internal/extractors/pdf"
	"github.com/custodia-labs/docqa/internal/extractors/plaintext"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// Set by the release build.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetInitializer(buildServices)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildServices wires the adapters from the persisted settings.
// Backends that cannot be reached are logged and left for the commands
// to report, so settings can still be fixed.
func buildServices(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settingsService.ValidateSettings(settings); err != nil {
		logger.Warn("Invalid settings: %v", err)
	}

	var collection driven.Collection
	store, err := newVectorStore(settings.VectorStore, dataDir(opts.ConfigDir, settings.Storage))
	if err != nil {
		logger.Warn("Vector store not usable: %v", err)
		store = nil
	} else if collection, err = store.Open(ctx, false); err != nil {
		logger.Warn("Vector store unavailable: %v", err)
	}
	closeStore := func() error {
		if store == nil {
			return nil
		}
		return store.Close()
	}

	loader, err := ai.NewModelLoader(settings.Embedding)
	if err != nil {
		logger.Warn("Embedding provider not usable: %v", err)
		loader = failingLoader(err)
	}
	embedder := services.NewEmbeddingGenerator(loader, settings.Embedding.BatchSize)

	normalizer, err := newNormalizer(settingsService.GetPipelineConfig())
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	prompts, err := file.NewPromptStore(subDir(opts.ConfigDir, "prompts"))
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	synth, err := ai.NewSynthesizer(settings.LLM, prompts)
	if err != nil {
		logger.Warn("LLM provider not usable: %v", err)
		synth = nil
	}

	documentsDir := settings.Storage.DocumentsDir
	if documentsDir == "" {
		documentsDir = subDir(opts.ConfigDir, "documents")
	}
	stager, err := filesystem.NewStager(documentsDir)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	pipeline := services.NewPipeline(collection, embedder, normalizer, synth, *settings)

	return &cli.Services{
		Index:          pipeline,
		Query:          pipeline,
		Document:       services.NewDocumentService(pipeline),
		Settings:       settingsService,
		Config:         configStore,
		Stager:         stager,
		Store:          store,
		Binder:         pipeline,
		Extensions:     normalizer.SupportedExtensions(),
		CheckEmbedding: ai.CheckEmbedding,
		CheckLLM:       ai.CheckLLM,
		Close: func() error {
			var errs []error
			errs = append(errs, embedder.Close())
			if synth != nil {
				errs = append(errs, synth.Close())
			}
			errs = append(errs, closeStore())
			return errors.Join(errs...)
		},
	}, nil
}

func newVectorStore(cfg domain.VectorStoreSettings, dataDir string) (driven.VectorStore, error) {
	switch cfg.Backend {
	case domain.VectorBackendMemory:
		return memory.NewStore(cfg.Collection, cfg.Metric), nil
	case domain.VectorBackendPGVector:
		store, err := pgvector.NewStore(cfg.DSN, cfg.Collection, cfg.Metric)
		if err != nil {
			return nil, fmt.Errorf("pgvector store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.NewStore(dataDir, cfg.Collection, cfg.Metric)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return store, nil
	}
}

func newNormalizer(cfg domain.PipelineConfig) (*services.Normalizer, error) {
	registry := extractors.NewRegistry(
		pdf.New(),
		epub.New(),
		docx.New(),
		html.New(),
		markdown.New(),
		plaintext.New(),
	)

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	chain, err := processors.BuildPipeline(cfg.Processors, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("build post-processors: %w", err)
	}
	return services.NewNormalizer(registry, chain), nil
}

// failingLoader reports err on every load so commands surface it.
func failingLoader(err error) driven.ModelLoader {
	return func(context.Context) (driven.EmbeddingModel, error) {
		return nil, err
	}
}

func dataDir(configDir string, storage domain.StorageSettings) string {
	if storage.DataDir != "" {
		return storage.DataDir
	}
	return subDir(configDir, "data")
}

// subDir places name under configDir. An empty configDir keeps the
// adapters' own ~/.docqa defaults.
func subDir(configDir, name string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, name)
}
