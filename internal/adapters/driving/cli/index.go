package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	indexName    string
	indexReplace bool
	indexStage   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [file...]",
	Short: "Index documents into the collection",
	Long: `Extracts, chunks and embeds each file and stores the chunks in the
collection. Indexing a file again keeps the older generation unless
--replace is given.

Use --stage to copy the files into the documents directory first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexName, "name", "", "display name (single file only)")
	indexCmd.Flags().BoolVar(&indexReplace, "replace", false, "delete older generations of the same name")
	indexCmd.Flags().BoolVar(&indexStage, "stage", false, "copy files into the documents directory before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if indexName != "" && len(args) > 1 {
		return fmt.Errorf("%w: --name requires a single file", domain.ErrInvalidInput)
	}
	if indexStage && fileStager == nil {
		return errors.New("file stager not configured")
	}

	printer := newProgressPrinter(cmd.OutOrStdout())

	var failed []string
	for _, path := range args {
		if err := indexFile(cmd, printer, path); err != nil {
			logger.Debug("index %s: %v", path, err)
			failed = append(failed, path)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to index %d of %d files: %s", len(failed), len(args), strings.Join(failed, ", "))
	}
	return nil
}

func indexFile(cmd *cobra.Command, printer *progressPrinter, path string) error {
	ctx := cmd.Context()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	name := indexName
	if name == "" {
		name = filepath.Base(abs)
	}

	if indexStage {
		abs, name, err = fileStager.Stage(ctx, abs, name)
		if err != nil {
			cmd.Printf("[FAILED] Could not stage '%s': %v\n", path, err)
			return err
		}
		logger.Debug("Staged %s as %s", path, abs)
	}

	result, err := indexService.IndexDocumentWithOptions(ctx, abs, name, printer,
		driving.IndexOptions{ReplaceExisting: indexReplace})
	if err != nil {
		if indexStage {
			if rmErr := fileStager.Remove(name); rmErr != nil {
				logger.Warn("Could not remove staged %s: %v", name, rmErr)
			}
		}
		return err
	}

	if result.DocID != "" {
		cmd.Printf("  Document ID: %s (%d chunks)\n", result.DocID, result.Chunks)
	}
	for _, id := range result.Replaced {
		cmd.Printf("  Replaced: %s\n", id)
	}
	return nil
}
