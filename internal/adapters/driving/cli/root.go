// Package cli provides the cobra command tree for docqa.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// annotationSkipInit marks commands that run without services.
const annotationSkipInit = "docqa/skip-init"

// Services injected by the composition root.
var (
	indexService    driving.IndexService
	queryService    driving.QueryService
	documentService driving.DocumentService
	settingsService driving.SettingsService
	configStore     driven.ConfigStore
	fileStager      driven.FileStager
	vectorStore     driven.VectorStore
	collectionBind  CollectionBinder

	supportedExtensions []string

	checkEmbedding func(ctx context.Context, settings domain.EmbeddingSettings) error
	checkLLM       func(ctx context.Context, settings domain.LLMSettings) error
)

var (
	initializer   Initializer
	initialised   bool
	closeServices func() error
)

// Root flags.
var (
	verboseFlag   bool
	configDirFlag string
)

// CollectionBinder receives a reopened collection handle.
type CollectionBinder interface {
	SetCollection(collection driven.Collection)
}

// Services are the ports the commands drive.
type Services struct {
	Index    driving.IndexService
	Query    driving.QueryService
	Document driving.DocumentService
	Settings driving.SettingsService
	Config   driven.ConfigStore
	Stager   driven.FileStager
	Store    driven.VectorStore

	// Binder receives the collection reopened by reset.
	Binder CollectionBinder

	// Extensions lists the file extensions the extractors accept.
	Extensions []string

	// CheckEmbedding and CheckLLM verify a provider configuration.
	CheckEmbedding func(ctx context.Context, settings domain.EmbeddingSettings) error
	CheckLLM       func(ctx context.Context, settings domain.LLMSettings) error

	// Close releases backend resources once the command returns.
	Close func() error
}

// Options carries the parsed root flags to the Initializer.
type Options struct {
	ConfigDir string
	Verbose   bool
}

// Initializer builds the services once flags are parsed.
type Initializer func(ctx context.Context, opts Options) (*Services, error)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes PDF, EPUB, DOCX, Markdown and text files into a vector
collection and answers questions grounded on the most relevant passages.

Get started:
  docqa index book.pdf
  docqa ask "What does chapter 2 say about caching?"`,
	SilenceUsage:      true,
	PersistentPreRunE: runRootPreRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "configuration directory (default ~/.docqa)")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetInitializer registers the hook that builds services after flag parsing.
func SetInitializer(init Initializer) {
	initializer = init
	initialised = false
}

// SetServices injects the ports used by every command.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	indexService = s.Index
	queryService = s.Query
	documentService = s.Document
	settingsService = s.Settings
	configStore = s.Config
	fileStager = s.Stager
	vectorStore = s.Store
	collectionBind = s.Binder
	supportedExtensions = s.Extensions
	checkEmbedding = s.CheckEmbedding
	checkLLM = s.CheckLLM
	closeServices = s.Close
}

// Execute runs the root command until it returns or the process is
// interrupted, then releases the services.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("Failed to close services: %v", cerr)
		}
	}
	return err
}

func runRootPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	loadDotEnv(configDirFlag)

	if skipInit(cmd) || initializer == nil || initialised {
		return nil
	}

	services, err := initializer(cmd.Context(), Options{ConfigDir: configDirFlag, Verbose: verboseFlag})
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}
	SetServices(services)
	initialised = true
	return nil
}

func skipInit(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationSkipInit] == "true" {
			return true
		}
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
	}
	return false
}

// loadDotEnv loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func loadDotEnv(configDir string) {
	paths := []string{".env"}
	if configDir != "" {
		paths = append(paths, filepath.Join(configDir, ".env"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".docqa", ".env"))
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Could not load %s: %v", p, err)
		}
	}
}
