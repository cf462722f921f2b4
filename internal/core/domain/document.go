package domain

import (
	"fmt"
	"strings"
)

// UnknownValue is the placeholder used when a document carries no title or
// author of its own.
const UnknownValue = "Unknown"

// ContentUnit is one page (PDF) or section (EPUB) of a document.
// Units are produced by an extractor and consumed by the normalizer;
// they are never persisted.
type ContentUnit struct {
	// Ordinal is the 1-based position of the unit in reading order.
	Ordinal int

	// Title is a best-effort label, e.g. "Page 3" or a TOC entry.
	Title string

	// Text is the raw extracted text.
	Text string
}

// IsBlank reports whether the unit has no text after trimming.
func (u ContentUnit) IsBlank() bool {
	return strings.TrimSpace(u.Text) == ""
}

// DocumentMeta holds document-level metadata reported by an extractor.
type DocumentMeta struct {
	Title      string
	Author     string
	TotalUnits int
}

// WithDefaults fills blank title and author with UnknownValue.
func (m DocumentMeta) WithDefaults() DocumentMeta {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = UnknownValue
	}
	if strings.TrimSpace(m.Author) == "" {
		m.Author = UnknownValue
	}
	return m
}

// ChunkMetadata is the typed metadata record stored with every chunk.
type ChunkMetadata struct {
	// DocID ties the chunk to one indexing generation of a document.
	// Empty on records written before doc ids existed.
	DocID string `json:"doc_id,omitempty"`

	// Filename is the display name of the source document.
	Filename string `json:"filename"`

	// SourcePath is the absolute on-disk path that was indexed.
	SourcePath string `json:"source_path"`

	// UnitOrdinal is the 1-based page or section number.
	UnitOrdinal int `json:"unit_ordinal"`

	// UnitTitle is the page or section label.
	UnitTitle string `json:"unit_title"`

	DocumentTitle  string `json:"document_title"`
	DocumentAuthor string `json:"document_author"`

	// SequenceID is the zero-based position of the chunk within its unit.
	SequenceID int `json:"sequence_id"`
}

// GroupKey returns the key used to group chunks into documents.
// Legacy records without a doc id are grouped by filename.
func (m ChunkMetadata) GroupKey() string {
	if m.DocID != "" {
		return m.DocID
	}
	return m.Filename
}

// Chunk is a contiguous text window drawn from one content unit.
type Chunk struct {
	// Text is the window content.
	Text string

	// Metadata is inherited from the unit plus the sequence id.
	Metadata ChunkMetadata
}

// IndexedChunk is a chunk as stored in a collection.
type IndexedChunk struct {
	// ID is the chunk store id: DocID + "_chunk_" + position.
	ID string

	Text string

	// Embedding must match the collection dimension.
	Embedding []float32

	Metadata ChunkMetadata
}

// ChunkID builds the store id for the chunk at position within docID.
func ChunkID(docID string, position int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, position)
}

// DocumentInfo summarises one document generation in a collection.
type DocumentInfo struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	Author     string `json:"author"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
}
