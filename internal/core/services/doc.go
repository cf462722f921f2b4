// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The indexing path is Normalizer (extract and chunk), EmbeddingGenerator
// and a Collection; Pipeline wires the three together and also answers
// questions against the same collection.
package services
