package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	DocID    string `json:"doc_id,omitempty" jsonschema:"restrict retrieval to one document id"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []domain.Source `json:"sources"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents   []domain.DocumentInfo `json:"documents"`
	Count       int                   `json:"count"`
	TotalChunks int                   `json:"total_chunks"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocID string `json:"doc_id" jsonschema:"the document id to delete"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocID   string `json:"doc_id"`
	Deleted int    `json:"deleted"`
}

// IndexDocumentInput is the input schema for the index_document tool.
type IndexDocumentInput struct {
	Path    string `json:"path" jsonschema:"absolute path of the file to index"`
	Name    string `json:"name,omitempty" jsonschema:"display name (default: the file name)"`
	Replace bool   `json:"replace,omitempty" jsonschema:"delete older generations with the same name"`
}

// IndexDocumentOutput is the output schema for the index_document tool.
type IndexDocumentOutput struct {
	DocID    string            `json:"doc_id"`
	Chunks   int               `json:"chunks"`
	Replaced []string          `json:"replaced,omitempty"`
	Progress []domain.Progress `json:"progress"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the indexed documents as context",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the indexed documents with their chunk counts",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete every chunk of an indexed document",
	}, s.handleDeleteDocument)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_document",
			Description: "Index a local file into the document collection",
		}, s.handleIndexDocument)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := driving.QueryOptions{
		Filter: domain.ChunkFilter{DocID: input.DocID},
		TopK:   input.TopK,
	}

	answer, err := s.ports.Query.QueryWithOptions(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{Answer: answer.Answer, Sources: sources}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	total := 0
	for i := range docs {
		total += docs[i].ChunkCount
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}

	return nil, ListDocumentsOutput{
		Documents:   docs,
		Count:       len(docs),
		TotalChunks: total,
	}, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	docID := strings.TrimSpace(input.DocID)
	if docID == "" {
		return nil, DeleteDocumentOutput{}, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}

	deleted, err := s.ports.Document.Delete(ctx, docID)
	if err != nil {
		return nil, DeleteDocumentOutput{}, fmt.Errorf("deleting document: %w", err)
	}

	return nil, DeleteDocumentOutput{DocID: docID, Deleted: deleted}, nil
}

// handleIndexDocument handles the index_document tool invocation.
func (s *Server) handleIndexDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDocumentInput,
) (*mcp.CallToolResult, IndexDocumentOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, IndexDocumentOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	var progress []domain.Progress
	sink := driven.ProgressFunc(func(message string, value float64) {
		progress = append(progress, domain.Progress{Message: message, Value: value})
	})

	result, err := s.ports.Index.IndexDocumentWithOptions(ctx, input.Path, input.Name, sink,
		driving.IndexOptions{ReplaceExisting: input.Replace})
	if err != nil {
		return nil, IndexDocumentOutput{}, indexError(progress, err)
	}

	return nil, IndexDocumentOutput{
		DocID:    result.DocID,
		Chunks:   result.Chunks,
		Replaced: result.Replaced,
		Progress: progress,
	}, nil
}

// indexError prefers the user-facing failure message over the raw cause.
func indexError(progress []domain.Progress, err error) error {
	for i := len(progress) - 1; i >= 0; i-- {
		if progress[i].Failed() {
			return fmt.Errorf("%s: %w", progress[i].Message, err)
		}
	}
	return errors.Join(errors.New("indexing failed"), err)
}
