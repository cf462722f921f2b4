// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor: Turns a file into ordered content units
//   - ExtractorRegistry: Selects an extractor by file extension
//   - PostProcessorPipeline: Splits unit text into chunks
//   - ModelLoader / EmbeddingModel: Produces embedding vectors
//   - VectorStore / Collection: Persists and searches indexed chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AnswerSynthesizer: Without it, queries return the retrieved context only.
//   - ProgressSink: Without it, progress is discarded.
//   - FileStager: Without it, files are indexed in place.
//   - PromptStore: Without it, synthesizers use their built-in prompt.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or post-processor package
package driven
