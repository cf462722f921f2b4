// Package sqlite provides the default driven.VectorStore, backed by an
// embedded SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Embeddings are stored as
// little-endian float32 blobs; searches scan the matching rows and rank
// them in Go.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/vectors.db
//
// # Thread Safety
//
// Each collection handle guards its operations with a read-write mutex:
// searches run in parallel, inserts and deletes are exclusive. SQLite runs
// in WAL mode.
package sqlite
