// Package vectortest is a behavioural test suite run against every
// driven.VectorStore backend.
package vectortest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Factory returns a fresh, empty store using cosine distance.
// The suite closes it when the test ends.
type Factory func(t *testing.T) driven.VectorStore

// Chunk builds a chunk of docID at position with the given embedding.
func Chunk(docID, filename string, position int, vec ...float32) domain.IndexedChunk {
	return domain.IndexedChunk{
		ID:        domain.ChunkID(docID, position),
		Text:      fmt.Sprintf("%s text %d", filename, position),
		Embedding: vec,
		Metadata: domain.ChunkMetadata{
			DocID:          docID,
			Filename:       filename,
			SourcePath:     "/docs/" + filename,
			UnitOrdinal:    position + 1,
			UnitTitle:      fmt.Sprintf("Page %d", position+1),
			DocumentTitle:  "Title of " + filename,
			DocumentAuthor: "Author",
			SequenceID:     0,
		},
	}
}

// Run executes the suite.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store driven.VectorStore)
	}{
		{"OpenIsIdempotent", testOpenIsIdempotent},
		{"EmptyCollection", testEmptyCollection},
		{"InsertAndAggregate", testInsertAndAggregate},
		{"InsertRejectsDuplicates", testInsertRejectsDuplicates},
		{"InsertRejectsDimensionMismatch", testInsertRejectsDimensionMismatch},
		{"SearchOrdering", testSearchOrdering},
		{"SearchFilter", testSearchFilter},
		{"SearchRoundTripsMetadata", testSearchRoundTripsMetadata},
		{"DeleteByDoc", testDeleteByDoc},
		{"LegacyRecordsGroupByFilename", testLegacyRecords},
		{"SearchLegacyByGroupKey", testSearchLegacyByGroupKey},
		{"ForceNewInvalidatesHandle", testForceNewInvalidatesHandle},
		{"RemoveStorage", testRemoveStorage},
		{"InsertBatch", testInsertBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			t.Cleanup(func() { _ = store.Close() })
			tt.fn(t, store)
		})
	}
}

func open(t *testing.T, store driven.VectorStore) driven.Collection {
	t.Helper()
	c, err := store.Open(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func testOpenIsIdempotent(t *testing.T, store driven.VectorStore) {
	first := open(t, store)
	second := open(t, store)

	assert.Same(t, first, second)
	assert.NotEmpty(t, first.Name())
}

func testEmptyCollection(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, nil))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.Dimension())

	hits, err := c.Search(ctx, []float32{1, 0}, 3, domain.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	docs, err := c.AggregateDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testInsertAndAggregate(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_b", "b.pdf", 0, 1, 0),
		Chunk("docid_b", "b.pdf", 1, 0, 1),
	}))
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_a", "a.pdf", 0, 1, 1),
	}))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, c.Dimension())

	docs, err := c.AggregateDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.DocumentInfo{
		DocID: "docid_b", Filename: "b.pdf", Title: "Title of b.pdf", Author: "Author", ChunkCount: 2,
	}, docs[0])
	assert.Equal(t, "docid_a", docs[1].DocID)
	assert.Equal(t, 1, docs[1].ChunkCount)

	count, err := c.CountChunksForDoc(ctx, "docid_b")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = c.CountChunksForDoc(ctx, "docid_missing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testInsertRejectsDuplicates(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	err := c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_a", "a.pdf", 0, 1, 0),
		Chunk("docid_a", "a.pdf", 0, 0, 1),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch writes nothing")

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_a", "a.pdf", 0, 1, 0)}))
	err = c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_a", "a.pdf", 1, 1, 0),
		Chunk("docid_a", "a.pdf", 0, 1, 0),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	n, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testInsertRejectsDimensionMismatch(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_a", "a.pdf", 0, 1, 0, 0)}))

	err := c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_b", "b.pdf", 0, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.Search(ctx, []float32{1, 0}, 1, domain.ChunkFilter{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func testSearchOrdering(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_x", "x.pdf", 2, 0, 1),  // orthogonal
		Chunk("docid_x", "x.pdf", 1, 1, 0),  // exact
		Chunk("docid_x", "x.pdf", 0, 2, 0),  // exact, scaled
		Chunk("docid_x", "x.pdf", 3, 1, 1),  // 45 degrees
		Chunk("docid_x", "x.pdf", 4, -1, 0), // opposite
	}))

	hits, err := c.Search(ctx, []float32{1, 0}, 4, domain.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 4)

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"docid_x_chunk_0", "docid_x_chunk_1", "docid_x_chunk_3", "docid_x_chunk_2"}, ids)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.InDelta(t, 1-1/1.4142135, hits[2].Distance, 1e-4)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}

	all, err := c.Search(ctx, []float32{1, 0}, 50, domain.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5, "min(topK, N) results")
	assert.Equal(t, "docid_x_chunk_4", all[4].ID)
}

func testSearchFilter(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_a", "a.pdf", 0, 1, 0),
		Chunk("docid_b", "b.pdf", 0, 1, 0),
		Chunk("docid_b", "b.pdf", 1, 0, 1),
	}))

	hits, err := c.Search(ctx, []float32{1, 0}, 10, domain.ChunkFilter{DocID: "docid_b"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "docid_b", h.Metadata.DocID)
	}

	hits, err = c.Search(ctx, []float32{1, 0}, 10, domain.ChunkFilter{Filename: "a.pdf"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "docid_a_chunk_0", hits[0].ID)
}

func testSearchRoundTripsMetadata(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	chunk := Chunk("docid_a", "a.pdf", 4, 0.5, 0.5)
	chunk.Text = "Conteúdo de teste."
	chunk.Metadata.SequenceID = 2
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{chunk}))

	hits, err := c.Search(ctx, []float32{0.5, 0.5}, 1, domain.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, chunk.ID, hits[0].ID)
	assert.Equal(t, chunk.Text, hits[0].Text)
	assert.Equal(t, chunk.Metadata, hits[0].Metadata)
}

func testDeleteByDoc(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		Chunk("docid_a", "a.pdf", 0, 1, 0),
		Chunk("docid_a", "a.pdf", 1, 1, 0),
		Chunk("docid_b", "b.pdf", 0, 0, 1),
	}))

	require.NoError(t, c.DeleteByDoc(ctx, "docid_a"))
	require.NoError(t, c.DeleteByDoc(ctx, "docid_a"), "deleting twice succeeds")
	require.NoError(t, c.DeleteByDoc(ctx, "docid_unknown"))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := c.CountChunksForDoc(ctx, "docid_a")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Ids of deleted rows can be reused
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_a", "a.pdf", 0, 1, 0)}))

	require.NoError(t, c.DeleteByDoc(ctx, "docid_a"))
	require.NoError(t, c.DeleteByDoc(ctx, "docid_b"))
	assert.Zero(t, c.Dimension(), "an emptied collection accepts a new dimension")
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_c", "c.pdf", 0, 1, 2, 3)}))
	assert.Equal(t, 3, c.Dimension())
}

func testLegacyRecords(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	legacy := Chunk("", "old.pdf", 0, 1, 0)
	legacy.ID = "old_chunk_0"
	legacy2 := Chunk("", "old.pdf", 1, 0, 1)
	legacy2.ID = "old_chunk_1"
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{legacy, legacy2, Chunk("docid_n", "new.pdf", 0, 1, 1)}))

	docs, err := c.AggregateDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "old.pdf", docs[0].DocID)
	assert.Equal(t, 2, docs[0].ChunkCount)

	count, err := c.CountChunksForDoc(ctx, "old.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.DeleteByDoc(ctx, "old.pdf"))
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testSearchLegacyByGroupKey(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	legacy := Chunk("", "old.pdf", 0, 1, 0)
	legacy.ID = "old_chunk_0"
	// A current generation of the same file must not match the legacy key.
	current := Chunk("docid_old", "old.pdf", 0, 1, 0)
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{legacy, current, Chunk("docid_n", "new.pdf", 0, 1, 0)}))

	hits, err := c.Search(ctx, []float32{1, 0}, 10, domain.ChunkFilter{DocID: "old.pdf"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old_chunk_0", hits[0].ID)

	hits, err = c.Search(ctx, []float32{1, 0}, 10, domain.ChunkFilter{DocID: "docid_old"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.ChunkID("docid_old", 0), hits[0].ID)
}

func testForceNewInvalidatesHandle(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	old := open(t, store)
	require.NoError(t, old.Insert(ctx, []domain.IndexedChunk{Chunk("docid_a", "a.pdf", 0, 1, 0)}))

	fresh, err := store.Open(ctx, true)
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)

	assert.ErrorIs(t, old.Available(), domain.ErrStoreUnavailable)
	assert.NoError(t, fresh.Available())
	_, err = old.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	err = old.Insert(ctx, []domain.IndexedChunk{Chunk("docid_b", "b.pdf", 0, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, err = old.Search(ctx, []float32{1, 0}, 1, domain.ChunkFilter{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	n, err := fresh.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "data survives a reopen")
	assert.Same(t, fresh, open(t, store))
}

func testRemoveStorage(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{Chunk("docid_a", "a.pdf", 0, 1, 0)}))

	require.NoError(t, store.RemoveStorage(ctx))

	_, err := c.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	fresh := open(t, store)
	n, err := fresh.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fresh.Dimension())
}

func testInsertBatch(t *testing.T, store driven.VectorStore) {
	ctx := context.Background()
	c := open(t, store)

	a := Chunk("docid_a", "a.pdf", 0, 1, 0)
	b := Chunk("docid_a", "a.pdf", 1, 0, 1)
	err := vectorstore.InsertBatch(ctx, c,
		[]string{a.Text, b.Text},
		[][]float32{a.Embedding, b.Embedding},
		[]domain.ChunkMetadata{a.Metadata},
		[]string{a.ID, b.ID},
	)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, vectorstore.InsertBatch(ctx, c,
		[]string{a.Text, b.Text},
		[][]float32{a.Embedding, b.Embedding},
		[]domain.ChunkMetadata{a.Metadata, b.Metadata},
		[]string{a.ID, b.ID},
	))

	count, err := c.CountChunksForDoc(ctx, "docid_a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
