package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Pipeline implements the interfaces.
var (
	_ driving.IndexService = (*Pipeline)(nil)
	_ driving.QueryService = (*Pipeline)(nil)
)

// Progress bands of an indexing operation.
const (
	progressNormalised = 0.60
	progressEmbedding  = 0.65
	progressEmbedded   = 0.90
)

// Fixed answers.
const (
	AnswerBlankQuestion  = "Please ask a question."
	AnswerNoResults      = "Sorry, I could not find relevant information in the documents to answer your question."
	AnswerSynthesisError = "A critical error occurred while generating the answer with the LLM."
	AnswerNoSynthesizer  = "No answer model is configured. The most relevant passages are listed in the sources."
)

const contextSeparator = "\n\n---\n\n"

// Pipeline indexes documents into a collection and answers questions
// from it.
type Pipeline struct {
	normalizer  *Normalizer
	embedder    *EmbeddingGenerator
	synthesizer driven.AnswerSynthesizer
	settings    domain.AppSettings

	mu         sync.RWMutex
	collection driven.Collection
}

// NewPipeline creates a pipeline over collection.
// synthesizer is optional: when nil, answers carry the sources only.
func NewPipeline(
	collection driven.Collection,
	embedder *EmbeddingGenerator,
	normalizer *Normalizer,
	synthesizer driven.AnswerSynthesizer,
	settings domain.AppSettings,
) *Pipeline {
	return &Pipeline{
		collection:  collection,
		embedder:    embedder,
		normalizer:  normalizer,
		synthesizer: synthesizer,
		settings:    settings,
	}
}

// SetCollection swaps the collection handle, e.g. after the store was
// reopened with forceNew.
func (p *Pipeline) SetCollection(collection driven.Collection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collection = collection
}

// Collection returns the current collection handle.
func (p *Pipeline) Collection() driven.Collection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.collection
}

// openCollection returns the handle, failing when none is open or it has
// been closed. It does no store I/O.
func (p *Pipeline) openCollection() (driven.Collection, error) {
	c := p.Collection()
	if c == nil {
		return nil, fmt.Errorf("%w: collection is not open", domain.ErrStoreUnavailable)
	}
	if err := c.Available(); err != nil {
		return nil, err
	}
	return c, nil
}

// IndexDocument indexes the file at path under originalFilename.
func (p *Pipeline) IndexDocument(
	ctx context.Context,
	path, originalFilename string,
	sink driven.ProgressSink,
) (bool, error) {
	_, err := p.IndexDocumentWithOptions(ctx, path, originalFilename, sink, driving.IndexOptions{})
	return err == nil, err
}

// IndexDocumentWithOptions extracts, chunks, embeds and stores the file
// at path. Progress moves through [0, 0.60] while normalising,
// [0.60, 0.90] while embedding and [0.90, 1.0] while storing. A failure
// is reported once with -1 and nothing more is reported after it.
func (p *Pipeline) IndexDocumentWithOptions(
	ctx context.Context,
	path, originalFilename string,
	sink driven.ProgressSink,
	opts driving.IndexOptions,
) (*driving.IndexResult, error) {
	progress := newTerminalSink(sink)
	name := originalFilename
	if name == "" {
		name = filepath.Base(path)
	}

	logger.Section("Index " + name)

	collection, err := p.openCollection()
	if err != nil {
		progress.Report("Error: the document store is not open.", domain.ProgressFailed)
		return nil, err
	}

	progress.Report(fmt.Sprintf("Starting to index '%s'...", name), 0.0)

	// Stage 1: normalise (0 to 0.60)
	chunks, err := p.normalizer.NormalizeAs(ctx, path, name, func(ordinal, total int) {
		if total > 0 {
			progress.Report(
				fmt.Sprintf("Processing document: item %d/%d", ordinal, total),
				float64(ordinal)/float64(total)*progressNormalised,
			)
		}
	})
	if err != nil {
		logger.Warn("Failed to process %s: %v", name, err)
		progress.Report(fmt.Sprintf("Failed to process '%s'.", name), domain.ProgressFailed)
		return nil, err
	}
	if len(chunks) == 0 {
		logger.Info("No text found in %s", name)
		progress.Report(fmt.Sprintf("No text found in '%s'.", name), domain.ProgressComplete)
		return &driving.IndexResult{}, nil
	}

	progress.Report("Document processed, preparing embeddings...", progressNormalised)

	// Stage 2: embed (0.60 to 0.90)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	progress.Report(fmt.Sprintf("Generating embeddings for %d chunks...", len(texts)), progressEmbedding)

	vectors, err := p.embedder.Embed(ctx, texts, p.settings.Embedding.BatchSize)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(texts))
	}
	if err != nil {
		logger.Warn("Failed to embed %s: %v", name, err)
		progress.Report(fmt.Sprintf("Failed to embed '%s'.", name), domain.ProgressFailed)
		return nil, err
	}

	progress.Report("Embeddings generated, saving to the store...", progressEmbedded)

	// Stage 3: store (0.90 to 1.0)
	docID := NewDocID(name)
	indexed := make([]domain.IndexedChunk, len(chunks))
	for i, c := range chunks {
		meta := c.Metadata
		meta.DocID = docID
		indexed[i] = domain.IndexedChunk{
			ID:        domain.ChunkID(docID, i),
			Text:      c.Text,
			Embedding: vectors[i],
			Metadata:  meta,
		}
	}

	if err := collection.Insert(ctx, indexed); err != nil {
		logger.Warn("Failed to store %s: %v", name, err)
		progress.Report(fmt.Sprintf("Failed to save '%s' to the store.", name), domain.ProgressFailed)
		return nil, err
	}

	result := &driving.IndexResult{DocID: docID, Chunks: len(indexed)}
	if opts.ReplaceExisting {
		result.Replaced = p.removeOlderGenerations(ctx, collection, name, docID)
	}

	logger.Info("Indexed %s as %s (%d chunks)", name, docID, len(indexed))
	progress.Report(fmt.Sprintf("'%s' indexed!", name), domain.ProgressComplete)
	return result, nil
}

// removeOlderGenerations deletes every generation of filename other than
// keep. Failures are logged; the new generation is already stored.
func (p *Pipeline) removeOlderGenerations(
	ctx context.Context,
	collection driven.Collection,
	filename, keep string,
) []string {
	docs, err := collection.AggregateDocuments(ctx)
	if err != nil {
		logger.Warn("Could not list generations of %s: %v", filename, err)
		return nil
	}

	var removed []string
	for _, d := range docs {
		if d.Filename != filename || d.DocID == keep {
			continue
		}
		if err := collection.DeleteByDoc(ctx, d.DocID); err != nil {
			logger.Warn("Could not remove generation %s: %v", d.DocID, err)
			continue
		}
		logger.Debug("Removed older generation %s", d.DocID)
		removed = append(removed, d.DocID)
	}
	return removed
}

// NewDocID mints a generation id for filename.
func NewDocID(filename string) string {
	return "docid_" + filename + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// Query answers question using the configured top-K.
func (p *Pipeline) Query(ctx context.Context, question string) (*domain.Answer, error) {
	return p.QueryWithOptions(ctx, question, driving.QueryOptions{})
}

// QueryWithFilter answers question from chunks matching filter.
func (p *Pipeline) QueryWithFilter(
	ctx context.Context,
	question string,
	filter domain.ChunkFilter,
) (*domain.Answer, error) {
	return p.QueryWithOptions(ctx, question, driving.QueryOptions{Filter: filter})
}

// QueryWithOptions embeds question, retrieves the nearest chunks and asks
// the synthesizer for an answer grounded in them. A synthesis failure
// yields a degraded answer, not an error.
func (p *Pipeline) QueryWithOptions(
	ctx context.Context,
	question string,
	opts driving.QueryOptions,
) (*domain.Answer, error) {
	logger.Section("Query")

	collection, err := p.openCollection()
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return &domain.Answer{Answer: AnswerBlankQuestion, Sources: []domain.Source{}}, nil
	}
	logger.Debug("Question: %q", question)

	vector, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		logger.Warn("Failed to embed question: %v", err)
		return nil, fmt.Errorf("embed question: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = p.settings.Retrieval.TopK
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	hits, err := collection.Search(ctx, vector, topK, opts.Filter)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Retrieved %d chunks (top-k %d)", len(hits), topK)

	if len(hits) == 0 {
		return &domain.Answer{Answer: AnswerNoResults, Sources: []domain.Source{}}, nil
	}

	contextBlock := BuildContext(hits)
	return &domain.Answer{
		Answer:  p.synthesize(ctx, question, contextBlock),
		Sources: BuildSources(hits, p.settings.Retrieval.ExcerptLength),
		Context: contextBlock,
	}, nil
}

func (p *Pipeline) synthesize(ctx context.Context, question, contextBlock string) string {
	if p.synthesizer == nil {
		return AnswerNoSynthesizer
	}

	answer, err := p.synthesizer.Synthesize(ctx, question, contextBlock)
	if err != nil {
		logger.Warn("Answer synthesis failed: %v", err)
		// Backend errors are phrased for the user and shown as the answer.
		if msg := err.Error(); strings.HasPrefix(msg, domain.SynthesisErrorPrefix) {
			return msg
		}
		return AnswerSynthesisError
	}
	if strings.TrimSpace(answer) == "" {
		return AnswerSynthesisError
	}
	return answer
}

// BuildContext formats retrieved chunks into the context block handed to
// the synthesizer, in retrieval order.
func BuildContext(hits []domain.SearchHit) string {
	entries := make([]string, len(hits))
	for i, h := range hits {
		entries[i] = fmt.Sprintf("Source: %s, Section/Page: %d (Section/Page Title: %s)\nContent: %s",
			h.Metadata.Filename, h.Metadata.UnitOrdinal, h.Metadata.UnitTitle, h.Text)
	}
	return strings.Join(entries, contextSeparator)
}

// BuildSources returns one source per hit, in retrieval order, with the
// first excerptLength characters of the chunk followed by "...".
func BuildSources(hits []domain.SearchHit, excerptLength int) []domain.Source {
	if excerptLength <= 0 {
		excerptLength = domain.DefaultExcerptLength
	}

	sources := make([]domain.Source, len(hits))
	for i, h := range hits {
		sources[i] = domain.Source{
			Filename:       h.Metadata.Filename,
			UnitOrdinal:    h.Metadata.UnitOrdinal,
			UnitTitle:      h.Metadata.UnitTitle,
			DocumentTitle:  h.Metadata.DocumentTitle,
			DocumentAuthor: h.Metadata.DocumentAuthor,
			Excerpt:        excerpt(h.Text, excerptLength),
		}
	}
	return sources
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// terminalSink forwards reports until the first failure report.
type terminalSink struct {
	inner  driven.ProgressSink
	failed bool
}

func newTerminalSink(inner driven.ProgressSink) *terminalSink {
	if inner == nil {
		inner = driven.NopProgress
	}
	return &terminalSink{inner: inner}
}

// Report forwards the report unless a failure was already reported.
func (s *terminalSink) Report(message string, value float64) {
	if s.failed {
		return
	}
	if value < 0 {
		s.failed = true
	}
	s.inner.Report(message, value)
}
