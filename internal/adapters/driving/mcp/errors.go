// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants ask questions against the indexed documents and
// manage the collection.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
