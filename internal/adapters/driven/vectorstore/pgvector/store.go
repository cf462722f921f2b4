// Package pgvector provides a driven.VectorStore on Postgres with the
// pgvector extension. Ranking happens in SQL with the <=> (cosine) and
// <-> (L2) operators.
package pgvector

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure the interfaces are implemented.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Collection  = (*collection)(nil)
)

const schema = `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS docqa_collections (
		name       TEXT PRIMARY KEY,
		metric     TEXT NOT NULL DEFAULT 'cosine',
		dimension  INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS docqa_chunks (
		seq             BIGSERIAL PRIMARY KEY,
		collection      TEXT NOT NULL REFERENCES docqa_collections(name) ON DELETE CASCADE,
		id              TEXT NOT NULL,
		doc_id          TEXT NOT NULL DEFAULT '',
		filename        TEXT NOT NULL,
		source_path     TEXT NOT NULL DEFAULT '',
		unit_ordinal    INTEGER NOT NULL DEFAULT 0,
		unit_title      TEXT NOT NULL DEFAULT '',
		document_title  TEXT NOT NULL DEFAULT '',
		document_author TEXT NOT NULL DEFAULT '',
		sequence_id     INTEGER NOT NULL DEFAULT 0,
		content         TEXT NOT NULL,
		embedding       vector NOT NULL,
		UNIQUE (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_docqa_chunks_doc_id ON docqa_chunks(collection, doc_id);
	CREATE INDEX IF NOT EXISTS idx_docqa_chunks_filename ON docqa_chunks(collection, filename);
`

// Store owns the connection pool and the single open handle.
// The pool is created lazily by Open.
type Store struct {
	dsn    string
	name   string
	metric domain.DistanceMetric

	mu      sync.Mutex
	pool    *pgxpool.Pool
	current *collection
}

// NewStore creates a store for the named collection. No connection is
// made until Open. An invalid metric falls back to cosine.
func NewStore(dsn, name string, metric domain.DistanceMetric) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", domain.ErrInvalidInput)
	}
	if !metric.IsValid() {
		metric = domain.DistanceCosine
	}
	return &Store{dsn: dsn, name: name, metric: metric}, nil
}

// Open returns the collection handle. forceNew closes the current handle
// and pool and connects again.
func (s *Store) Open(ctx context.Context, forceNew bool) (driven.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !forceNew {
		return s.current, nil
	}
	s.closeLocked()

	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting: %w", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrStoreUnavailable, err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", domain.ErrStoreUnavailable, err)
	}

	c, err := newCollection(ctx, pool, s.name, s.metric)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	logger.Debug("Opened pgvector collection %s (dimension %d)", s.name, c.dim)
	s.pool = pool
	s.current = c
	return c, nil
}

// RemoveStorage closes the handle and deletes the collection and its
// chunks. Other collections in the same database are untouched.
func (s *Store) RemoveStorage(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pool
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
	if pool == nil {
		var err error
		if pool, err = pgxpool.New(ctx, s.dsn); err != nil {
			return fmt.Errorf("%w: connecting: %w", domain.ErrStoreUnavailable, err)
		}
	}
	defer func() {
		pool.Close()
		s.pool = nil
	}()

	if _, err := pool.Exec(ctx, "DELETE FROM docqa_collections WHERE name = $1", s.name); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return fmt.Errorf("%w: removing collection %s: %w", domain.ErrStoreUnavailable, s.name, err)
	}
	return nil
}

// Close releases the handle and the pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

// closeLocked invalidates the handle, then closes the pool (caller must hold lock).
func (s *Store) closeLocked() {
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
