// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContentUnit: A page or section produced by an extractor
//   - Chunk: A bounded text window drawn from one content unit
//   - IndexedChunk: A chunk with its store id and embedding vector
//   - DocumentInfo: Per-document statistics derived from stored chunks
//   - Answer: A synthesised answer plus its retrieval sources
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
