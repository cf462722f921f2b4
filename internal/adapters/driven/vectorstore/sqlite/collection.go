package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// groupPredicate matches the rows of one document. Legacy rows without a
// doc id are addressed by filename.
const groupPredicate = "(doc_id = ? OR (doc_id = '' AND filename = ?))"

const chunkColumns = `id, doc_id, filename, source_path, unit_ordinal, unit_title,
	document_title, document_author, sequence_id, content`

// collection is one handle on the chunks of a named collection.
type collection struct {
	db     *sql.DB
	name   string
	metric domain.DistanceMetric

	mu     sync.RWMutex
	closed bool
	dim    int
}

// newCollection registers name in the collections table and loads its
// dimension.
func newCollection(ctx context.Context, db *sql.DB, name string, metric domain.DistanceMetric) (*collection, error) {
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, metric) VALUES (?, ?)", name, metric.String())
	if err != nil {
		return nil, fmt.Errorf("registering collection %s: %w", name, err)
	}

	var dim int
	row := db.QueryRowContext(ctx, "SELECT dimension FROM collections WHERE name = ?", name)
	if err := row.Scan(&dim); err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	}

	return &collection{db: db, name: name, metric: metric, dim: dim}, nil
}

func (c *collection) Name() string {
	return c.name
}

// available fails once the handle is closed (caller must hold lock).
func (c *collection) available() error {
	if c.closed {
		return fmt.Errorf("%w: collection %s is closed", domain.ErrStoreUnavailable, c.name)
	}
	return nil
}

// Insert writes the batch in one transaction.
func (c *collection) Insert(ctx context.Context, chunks []domain.IndexedChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.available(); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	dim, err := vectorstore.ValidateInsert(chunks, c.dim)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	exists, err := tx.PrepareContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ? AND id = ?")
	if err != nil {
		return fmt.Errorf("%w: preparing lookup: %w", domain.ErrStoreUnavailable, err)
	}
	defer exists.Close()

	for _, ch := range chunks {
		var n int
		if err := exists.QueryRowContext(ctx, c.name, ch.ID).Scan(&n); err != nil {
			return fmt.Errorf("%w: checking id %s: %w", domain.ErrStoreUnavailable, ch.ID, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: id %q already stored", domain.ErrValidation, ch.ID)
		}
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, `+chunkColumns+`, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", domain.ErrStoreUnavailable, err)
	}
	defer insert.Close()

	for _, ch := range chunks {
		m := ch.Metadata
		_, err := insert.ExecContext(ctx,
			c.name, ch.ID, m.DocID, m.Filename, m.SourcePath, m.UnitOrdinal, m.UnitTitle,
			m.DocumentTitle, m.DocumentAuthor, m.SequenceID, ch.Text,
			vectorstore.EncodeEmbedding(ch.Embedding),
		)
		if err != nil {
			return fmt.Errorf("%w: inserting %s: %w", domain.ErrStoreUnavailable, ch.ID, err)
		}
	}

	if dim != c.dim {
		if _, err := tx.ExecContext(ctx,
			"UPDATE collections SET dimension = ? WHERE name = ?", dim, c.name); err != nil {
			return fmt.Errorf("%w: recording dimension: %w", domain.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing insert: %w", domain.ErrStoreUnavailable, err)
	}
	c.dim = dim
	return nil
}

// Search scans the rows matching filter and ranks them in Go.
func (c *collection) Search(
	ctx context.Context,
	query []float32,
	topK int,
	filter domain.ChunkFilter,
) ([]domain.SearchHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.available(); err != nil {
		return nil, err
	}
	if c.dim == 0 || topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vectorstore.ValidateQuery(query, c.dim); err != nil {
		return nil, err
	}

	where := []string{"collection = ?"}
	args := []any{c.name}
	if filter.DocID != "" {
		where = append(where, groupPredicate)
		args = append(args, filter.DocID, filter.DocID)
	}
	if filter.Filename != "" {
		where = append(where, "filename = ?")
		args = append(args, filter.Filename)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT "+chunkColumns+", embedding FROM chunks WHERE "+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0)
	for rows.Next() {
		var (
			h    domain.SearchHit
			m    = &h.Metadata
			blob []byte
		)
		if err := rows.Scan(&h.ID, &m.DocID, &m.Filename, &m.SourcePath, &m.UnitOrdinal, &m.UnitTitle,
			&m.DocumentTitle, &m.DocumentAuthor, &m.SequenceID, &h.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStoreUnavailable, err)
		}
		vec, err := vectorstore.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %w", domain.ErrStoreUnavailable, h.ID, err)
		}
		if len(vec) != len(query) {
			continue
		}
		h.Distance = vectorstore.Distance(c.metric, query, vec)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStoreUnavailable, err)
	}

	return vectorstore.Rank(hits, topK), nil
}

// DeleteByDoc removes every row of docID. Emptying the collection frees
// its dimension.
func (c *collection) DeleteByDoc(ctx context.Context, docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.available(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ? AND "+groupPredicate, c.name, docID, docID); err != nil {
		return fmt.Errorf("%w: deleting %s: %w", domain.ErrStoreUnavailable, docID, err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", c.name).Scan(&remaining); err != nil {
		return fmt.Errorf("%w: counting chunks: %w", domain.ErrStoreUnavailable, err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE collections SET dimension = 0 WHERE name = ?", c.name); err != nil {
			return fmt.Errorf("%w: resetting dimension: %w", domain.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing delete: %w", domain.ErrStoreUnavailable, err)
	}
	if remaining == 0 {
		c.dim = 0
	}
	return nil
}

// AggregateDocuments groups rows in insertion order.
func (c *collection) AggregateDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.available(); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT doc_id, filename, document_title, document_author
		FROM chunks WHERE collection = ? ORDER BY seq
	`, c.name)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	agg := vectorstore.NewAggregator()
	for rows.Next() {
		var m domain.ChunkMetadata
		if err := rows.Scan(&m.DocID, &m.Filename, &m.DocumentTitle, &m.DocumentAuthor); err != nil {
			return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrStoreUnavailable, err)
		}
		agg.Add(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrStoreUnavailable, err)
	}
	return agg.Documents(), nil
}

func (c *collection) CountChunksForDoc(ctx context.Context, docID string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.available(); err != nil {
		return 0, err
	}

	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ? AND "+groupPredicate, c.name, docID, docID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting %s: %w", domain.ErrStoreUnavailable, docID, err)
	}
	return n, nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.available(); err != nil {
		return 0, err
	}

	var n int
	if err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (c *collection) Available() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available()
}

func (c *collection) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dim
}

// Close invalidates the handle. The store owns the connection.
func (c *collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
