package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, inspect, count or delete indexed document generations.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentCountCmd = &cobra.Command{
	Use:   "count [doc-id]",
	Short: "Count chunks of a document, or of the whole collection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDocumentCount,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents from the collection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentCountCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println("Indexed documents:")
	cmd.Println()
	total := 0
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].DocID)
		cmd.Printf("    File:   %s\n", docs[i].Filename)
		cmd.Printf("    Title:  %s\n", docs[i].Title)
		cmd.Printf("    Author: %s\n", docs[i].Author)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
		total += docs[i].ChunkCount
	}

	cmd.Printf("Total: %d documents, %d chunks\n", len(docs), total)
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.DocID)
	cmd.Printf("  File:    %s\n", doc.Filename)
	cmd.Printf("  Title:   %s\n", doc.Title)
	cmd.Printf("  Author:  %s\n", doc.Author)
	cmd.Printf("  Chunks:  %d\n", doc.ChunkCount)
	return nil
}

func runDocumentCount(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if len(args) == 0 {
		total, err := documentService.TotalChunks(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count chunks: %w", err)
		}
		cmd.Printf("%d chunks in the collection\n", total)
		return nil
	}

	n, err := documentService.Count(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	cmd.Printf("%d chunks for %s\n", n, args[0])
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	for _, docID := range args {
		n, err := documentService.Delete(cmd.Context(), docID)
		if err != nil {
			return fmt.Errorf("failed to delete document %s: %w", docID, err)
		}
		cmd.Printf("Deleted %d chunks of %s.\n", n, docID)
	}
	return nil
}
