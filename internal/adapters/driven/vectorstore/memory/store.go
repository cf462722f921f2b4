// Package memory provides an in-process driven.VectorStore. Inserts are
// copy-on-write so concurrent searches see either the old or the new rows.
// Data lives as long as the Store value.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure the interfaces are implemented.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Collection  = (*collection)(nil)
)

// Store owns the shared rows and the single open handle.
type Store struct {
	name   string
	metric domain.DistanceMetric

	mu      sync.Mutex
	data    *rows
	current *collection
}

// rows is the durable state shared by every handle of a Store.
type rows struct {
	mu     sync.RWMutex
	chunks []domain.IndexedChunk
	ids    map[string]struct{}
	dim    int
}

// NewStore creates an empty store. An invalid metric falls back to cosine.
func NewStore(name string, metric domain.DistanceMetric) *Store {
	if !metric.IsValid() {
		metric = domain.DistanceCosine
	}
	return &Store{
		name:   name,
		metric: metric,
		data:   newRows(),
	}
}

func newRows() *rows {
	return &rows{ids: make(map[string]struct{})}
}

// Open returns the handle, building a fresh one when forceNew is set.
func (s *Store) Open(_ context.Context, forceNew bool) (driven.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !forceNew {
		return s.current, nil
	}
	if s.current != nil {
		_ = s.current.Close()
	}
	s.current = &collection{name: s.name, metric: s.metric, data: s.data}
	return s.current, nil
}

// RemoveStorage closes the handle and drops every row.
func (s *Store) RemoveStorage(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
	s.data = newRows()
	return nil
}

// Close releases the open handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

// collection is one handle on the shared rows.
type collection struct {
	name   string
	metric domain.DistanceMetric
	data   *rows

	mu     sync.RWMutex
	closed bool
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) check() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("%w: collection %s is closed", domain.ErrStoreUnavailable, c.name)
	}
	return nil
}

// Insert validates the batch and swaps in a new row slice.
func (c *collection) Insert(_ context.Context, chunks []domain.IndexedChunk) error {
	if err := c.check(); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	c.data.mu.Lock()
	defer c.data.mu.Unlock()

	dim, err := vectorstore.ValidateInsert(chunks, c.data.dim)
	if err != nil {
		return err
	}
	for _, ch := range chunks {
		if _, exists := c.data.ids[ch.ID]; exists {
			return fmt.Errorf("%w: id %q already stored", domain.ErrValidation, ch.ID)
		}
	}

	next := make([]domain.IndexedChunk, len(c.data.chunks), len(c.data.chunks)+len(chunks))
	copy(next, c.data.chunks)
	ids := make(map[string]struct{}, len(c.data.ids)+len(chunks))
	for id := range c.data.ids {
		ids[id] = struct{}{}
	}
	for _, ch := range chunks {
		ch.Embedding = append([]float32(nil), ch.Embedding...)
		next = append(next, ch)
		ids[ch.ID] = struct{}{}
	}

	c.data.chunks = next
	c.data.ids = ids
	c.data.dim = dim
	return nil
}

// Search ranks every matching row against query.
func (c *collection) Search(
	_ context.Context,
	query []float32,
	topK int,
	filter domain.ChunkFilter,
) ([]domain.SearchHit, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	c.data.mu.RLock()
	chunks, dim := c.data.chunks, c.data.dim
	c.data.mu.RUnlock()

	if len(chunks) == 0 || topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vectorstore.ValidateQuery(query, dim); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(chunks))
	for _, ch := range chunks {
		if !filter.Matches(ch.Metadata) {
			continue
		}
		hits = append(hits, domain.SearchHit{
			ID:       ch.ID,
			Text:     ch.Text,
			Metadata: ch.Metadata,
			Distance: vectorstore.Distance(c.metric, query, ch.Embedding),
		})
	}
	return vectorstore.Rank(hits, topK), nil
}

// DeleteByDoc removes every row of docID.
func (c *collection) DeleteByDoc(_ context.Context, docID string) error {
	if err := c.check(); err != nil {
		return err
	}

	c.data.mu.Lock()
	defer c.data.mu.Unlock()

	next := make([]domain.IndexedChunk, 0, len(c.data.chunks))
	ids := make(map[string]struct{}, len(c.data.ids))
	for _, ch := range c.data.chunks {
		if vectorstore.BelongsTo(ch.Metadata, docID) {
			continue
		}
		next = append(next, ch)
		ids[ch.ID] = struct{}{}
	}

	c.data.chunks = next
	c.data.ids = ids
	if len(next) == 0 {
		c.data.dim = 0
	}
	return nil
}

func (c *collection) AggregateDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	c.data.mu.RLock()
	chunks := c.data.chunks
	c.data.mu.RUnlock()

	agg := vectorstore.NewAggregator()
	for _, ch := range chunks {
		agg.Add(ch.Metadata)
	}
	return agg.Documents(), nil
}

func (c *collection) CountChunksForDoc(_ context.Context, docID string) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	c.data.mu.RLock()
	defer c.data.mu.RUnlock()

	n := 0
	for _, ch := range c.data.chunks {
		if vectorstore.BelongsTo(ch.Metadata, docID) {
			n++
		}
	}
	return n, nil
}

func (c *collection) Count(_ context.Context) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	c.data.mu.RLock()
	defer c.data.mu.RUnlock()
	return len(c.data.chunks), nil
}

func (c *collection) Available() error {
	return c.check()
}

func (c *collection) Dimension() int {
	c.data.mu.RLock()
	defer c.data.mu.RUnlock()
	return c.data.dim
}

func (c *collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
