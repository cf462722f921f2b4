package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/vectortest"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestStore_Suite(t *testing.T) {
	vectortest.Run(t, func(t *testing.T) driven.VectorStore {
		return NewStore("test", domain.DistanceCosine)
	})
}

func TestNewStore_InvalidMetricFallsBackToCosine(t *testing.T) {
	store := NewStore("test", "dot")

	assert.Equal(t, domain.DistanceCosine, store.metric)
}

func TestStore_L2Metric(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test", domain.DistanceL2)
	c, err := store.Open(ctx, false)
	require.NoError(t, err)

	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{
		vectortest.Chunk("docid_a", "a.pdf", 0, 3, 4),
		vectortest.Chunk("docid_a", "a.pdf", 1, 1, 1),
	}))

	hits, err := c.Search(ctx, []float32{0, 0}, 2, domain.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "docid_a_chunk_1", hits[0].ID)
	assert.InDelta(t, 5.0, hits[1].Distance, 1e-9)
}

func TestCollection_InsertCopiesEmbedding(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test", domain.DistanceCosine)
	c, err := store.Open(ctx, false)
	require.NoError(t, err)

	chunk := vectortest.Chunk("docid_a", "a.pdf", 0, 1, 0)
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{chunk}))
	chunk.Embedding[0] = -1

	hits, err := c.Search(ctx, []float32{1, 0}, 1, domain.ChunkFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
}

func TestCollection_ConcurrentSearchDuringInsert(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test", domain.DistanceCosine)
	c, err := store.Open(ctx, false)
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, []domain.IndexedChunk{vectortest.Chunk("docid_seed", "s.pdf", 0, 1, 0)}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = c.Insert(ctx, []domain.IndexedChunk{vectortest.Chunk("docid_w", "w.pdf", i, 0, 1)})
		}(i)
		go func() {
			defer wg.Done()
			hits, err := c.Search(ctx, []float32{1, 0}, 1, domain.ChunkFilter{})
			assert.NoError(t, err)
			assert.Len(t, hits, 1)
		}()
	}
	wg.Wait()

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}
