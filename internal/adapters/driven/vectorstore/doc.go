// Package vectorstore holds the pieces shared by the collection backends:
// distance functions, embedding blob encoding, deterministic ranking, insert
// validation and document aggregation.
//
// Backends live in subpackages:
//
//   - sqlite: the default embedded store (modernc.org/sqlite)
//   - memory: copy-on-write in-process store for tests and ephemeral runs
//   - pgvector: Postgres with the pgvector extension
package vectorstore
