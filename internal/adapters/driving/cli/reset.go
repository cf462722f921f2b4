package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every indexed chunk",
	Long: `Wipes the collection storage and opens a fresh, empty collection.
Staged files in the documents directory are kept.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if vectorStore == nil {
		return errors.New("vector store not configured")
	}
	if !resetYes {
		return fmt.Errorf("%w: reset deletes every indexed chunk; re-run with --yes to confirm", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	if err := vectorStore.RemoveStorage(ctx); err != nil {
		return fmt.Errorf("failed to remove storage: %w", err)
	}

	collection, err := vectorStore.Open(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to reopen collection: %w", err)
	}
	if collectionBind != nil {
		collectionBind.SetCollection(collection)
	}

	cmd.Printf("Collection %s reset.\n", collection.Name())
	return nil
}
