package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Document lists and deletes indexed documents.
	Document driving.DocumentService

	// Index indexes files already present on disk. Optional; the
	// index_document tool is registered only when it is set.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
