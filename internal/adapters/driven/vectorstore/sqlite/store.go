package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DBFile is the database file name inside the data directory.
const DBFile = "vectors.db"

// Ensure the interfaces are implemented.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Collection  = (*collection)(nil)
)

// Store owns the database connection and the single open handle.
// The connection is opened lazily by Open.
type Store struct {
	path   string
	name   string
	metric domain.DistanceMetric

	mu      sync.Mutex
	db      *sql.DB
	current *collection
}

// NewStore creates a store for the named collection in dataDir.
// If dataDir is empty, defaults to ~/.docqa/data.
// An invalid metric falls back to cosine.
func NewStore(dataDir, name string, metric domain.DistanceMetric) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if !metric.IsValid() {
		metric = domain.DistanceCosine
	}

	return &Store{
		path:   filepath.Join(dataDir, DBFile),
		name:   name,
		metric: metric,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Open returns the collection handle. forceNew closes the current handle
// and connection and builds new ones over the same file.
func (s *Store) Open(ctx context.Context, forceNew bool) (driven.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !forceNew {
		return s.current, nil
	}
	if err := s.closeLocked(); err != nil {
		logger.Warn("Closing vector store before reopen: %v", err)
	}

	db, err := openDB(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	c, err := newCollection(ctx, db, s.name, s.metric)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	logger.Debug("Opened collection %s at %s (dimension %d)", s.name, s.path, c.dim)
	s.db = db
	s.current = c
	return c, nil
}

// RemoveStorage closes the handle and deletes the database files.
func (s *Store) RemoveStorage(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		logger.Warn("Closing vector store before removal: %v", err)
	}

	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// Close releases the handle and the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// closeLocked invalidates the handle, then closes the connection
// (caller must hold lock).
func (s *Store) closeLocked() error {
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Run migrations
	if err := migrate(ctx, db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// migrate runs all pending migrations.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
