package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// groupPredicate matches the rows of one document, $2 being the key.
// Legacy rows without a doc id are addressed by filename.
const groupPredicate = "(doc_id = $2 OR (doc_id = '' AND filename = $2))"

// groupPredicateAt is groupPredicate with the key at placeholder n.
func groupPredicateAt(n int) string {
	p := "$" + strconv.Itoa(n)
	return "(doc_id = " + p + " OR (doc_id = '' AND filename = " + p + "))"
}

const chunkColumns = `id, doc_id, filename, source_path, unit_ordinal, unit_title,
	document_title, document_author, sequence_id, content`

// collection is one handle on the chunks of a named collection.
type collection struct {
	pool     *pgxpool.Pool
	name     string
	operator string

	mu     sync.RWMutex
	closed bool
	dim    int
}

func newCollection(ctx context.Context, pool *pgxpool.Pool, name string, metric domain.DistanceMetric) (*collection, error) {
	_, err := pool.Exec(ctx, `
		INSERT INTO docqa_collections (name, metric) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, name, metric.String())
	if err != nil {
		return nil, fmt.Errorf("registering collection %s: %w", name, err)
	}

	var dim int
	if err := pool.QueryRow(ctx,
		"SELECT dimension FROM docqa_collections WHERE name = $1", name).Scan(&dim); err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	}

	return &collection{pool: pool, name: name, operator: operatorFor(metric), dim: dim}, nil
}

// operatorFor returns the pgvector distance operator of metric.
func operatorFor(metric domain.DistanceMetric) string {
	if metric == domain.DistanceL2 {
		return "<->"
	}
	return "<=>"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
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

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after Commit is a no-op

	var existing string
	err = tx.QueryRow(ctx,
		"SELECT id FROM docqa_chunks WHERE collection = $1 AND id = ANY($2) LIMIT 1", c.name, ids).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: id %q already stored", domain.ErrValidation, existing)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: checking ids: %w", domain.ErrStoreUnavailable, err)
	}

	batch := &pgx.Batch{}
	for _, ch := range chunks {
		m := ch.Metadata
		batch.Queue(`
			INSERT INTO docqa_chunks (collection, `+chunkColumns+`, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, c.name, ch.ID, m.DocID, m.Filename, m.SourcePath, m.UnitOrdinal, m.UnitTitle,
			m.DocumentTitle, m.DocumentAuthor, m.SequenceID, ch.Text, pgvector.NewVector(ch.Embedding))
	}
	if dim != c.dim {
		batch.Queue("UPDATE docqa_collections SET dimension = $1 WHERE name = $2", dim, c.name)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: inserting chunks: %w", domain.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing insert: %w", domain.ErrStoreUnavailable, err)
	}
	c.dim = dim
	return nil
}

// Search ranks matching rows in SQL.
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

	where := []string{"collection = $2"}
	args := []any{pgvector.NewVector(query), c.name}
	if filter.DocID != "" {
		args = append(args, filter.DocID)
		where = append(where, groupPredicateAt(len(args)))
	}
	if filter.Filename != "" {
		args = append(args, filter.Filename)
		where = append(where, "filename = $"+strconv.Itoa(len(args)))
	}
	args = append(args, topK)

	stmt := fmt.Sprintf(`
		SELECT %s, embedding %s $1 AS distance
		FROM docqa_chunks
		WHERE %s
		ORDER BY distance, id
		LIMIT $%d
	`, chunkColumns, c.operator, strings.Join(where, " AND "), len(args))

	rows, err := c.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0, topK)
	for rows.Next() {
		var h domain.SearchHit
		m := &h.Metadata
		if err := rows.Scan(&h.ID, &m.DocID, &m.Filename, &m.SourcePath, &m.UnitOrdinal, &m.UnitTitle,
			&m.DocumentTitle, &m.DocumentAuthor, &m.SequenceID, &h.Text, &h.Distance); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStoreUnavailable, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return hits, nil
}

// DeleteByDoc removes every row of docID. Emptying the collection frees
// its dimension.
func (c *collection) DeleteByDoc(ctx context.Context, docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.available(); err != nil {
		return err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after Commit is a no-op

	if _, err := tx.Exec(ctx,
		"DELETE FROM docqa_chunks WHERE collection = $1 AND "+groupPredicate, c.name, docID); err != nil {
		return fmt.Errorf("%w: deleting %s: %w", domain.ErrStoreUnavailable, docID, err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE docqa_collections SET dimension = 0
		WHERE name = $1 AND NOT EXISTS (SELECT 1 FROM docqa_chunks WHERE collection = $1)
	`, c.name)
	if err != nil {
		return fmt.Errorf("%w: resetting dimension: %w", domain.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing delete: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() > 0 {
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

	rows, err := c.pool.Query(ctx, `
		SELECT doc_id, filename, document_title, document_author
		FROM docqa_chunks WHERE collection = $1 ORDER BY seq
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
	if err := c.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM docqa_chunks WHERE collection = $1 AND "+groupPredicate, c.name, docID).Scan(&n); err != nil {
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
	if err := c.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM docqa_chunks WHERE collection = $1", c.name).Scan(&n); err != nil {
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

// Close invalidates the handle. The store owns the pool.
func (c *collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
