package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.ChunkSize() != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.ChunkSize())
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(50))
		if p.Overlap() != 50 {
			t.Errorf("expected overlap 50, got %d", p.Overlap())
		}
	})

	t.Run("overlap above chunk size is kept", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.Overlap() != 150 {
			t.Errorf("expected overlap 150, got %d", p.Overlap())
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.Overlap())
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()

	chunks, err := p.Process(context.Background(), &driven.UnitText{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}

	chunks, err = p.Process(context.Background(), nil, nil)
	if err != nil || len(chunks) != 0 {
		t.Errorf("expected no chunks and no error for nil unit, got %d, %v", len(chunks), err)
	}
}

func TestProcessor_Process_InheritsMetadata(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	unit := &driven.UnitText{
		Text: strings.Repeat("a", 25),
		Base: domain.ChunkMetadata{Filename: "book.epub", UnitOrdinal: 3, UnitTitle: "Chapter 3"},
	}

	chunks, err := p.Process(context.Background(), unit, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.Filename != "book.epub" || c.Metadata.UnitOrdinal != 3 || c.Metadata.UnitTitle != "Chapter 3" {
			t.Errorf("chunk %d lost base metadata: %+v", i, c.Metadata)
		}
		if c.Metadata.SequenceID != i {
			t.Errorf("chunk %d: expected sequence id %d, got %d", i, i, c.Metadata.SequenceID)
		}
	}
	if unit.Base.SequenceID != 0 {
		t.Error("base metadata must not be mutated")
	}
}
