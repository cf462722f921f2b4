package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// mockExtractor returns fixed units and reports progress per unit.
type mockExtractor struct {
	exts  []string
	units []domain.ContentUnit
	meta  domain.DocumentMeta
	err   error

	mu    sync.Mutex
	paths []string
}

var _ driven.Extractor = (*mockExtractor)(nil)

func (m *mockExtractor) Name() string { return "mock" }

func (m *mockExtractor) Extensions() []string {
	if len(m.exts) == 0 {
		return []string{".pdf"}
	}
	return m.exts
}

func (m *mockExtractor) Extract(
	_ context.Context,
	path string,
	progress driven.UnitProgressFunc,
) ([]domain.ContentUnit, domain.DocumentMeta, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.err != nil {
		return nil, domain.DocumentMeta{}, m.err
	}
	meta := m.meta
	meta.TotalUnits = len(m.units)
	for _, u := range m.units {
		if progress != nil {
			progress(u.Ordinal, len(m.units))
		}
	}
	return m.units, meta, nil
}

// mockModel embeds text with a deterministic function.
type mockModel struct {
	dims    int
	embedFn func(text string) []float32
	err     error
	pingErr error

	mu      sync.Mutex
	batches [][]string
	closed  int
}

var _ driven.EmbeddingModel = (*mockModel)(nil)

func (m *mockModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.embedFn != nil {
			out[i] = m.embedFn(t)
		} else {
			out[i] = keywordVector(t)
		}
	}
	return out, nil
}

func (m *mockModel) Dimensions() int { return m.dims }

func (m *mockModel) ModelName() string { return "mock-embed" }

func (m *mockModel) Ping(context.Context) error { return m.pingErr }

func (m *mockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockModel) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// keywordVector scores text on a few fixed words so related texts are near.
func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	words := []string{"teste", "gato", "cachorro", "python"}
	vec := make([]float32, len(words)+1)
	for i, w := range words {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(words)] = 0.01
	return vec
}

// countingLoader returns model after failing the first failures calls.
type countingLoader struct {
	model    driven.EmbeddingModel
	failures int

	mu    sync.Mutex
	calls int
}

func (l *countingLoader) load(context.Context) (driven.EmbeddingModel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls <= l.failures {
		return nil, errors.New("connection refused")
	}
	return l.model, nil
}

func (l *countingLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// mockSynthesizer records its inputs and returns a fixed answer.
type mockSynthesizer struct {
	answer string
	err    error

	calls        int
	question     string
	contextBlock string
}

var _ driven.AnswerSynthesizer = (*mockSynthesizer)(nil)

func (s *mockSynthesizer) Synthesize(_ context.Context, question, contextBlock string) (string, error) {
	s.calls++
	s.question = question
	s.contextBlock = contextBlock
	return s.answer, s.err
}

func (s *mockSynthesizer) ModelName() string { return "mock-llm" }

func (s *mockSynthesizer) Ping(context.Context) error { return nil }

func (s *mockSynthesizer) Close() error { return nil }

// progressRecorder captures every report.
type progressRecorder struct {
	reports []domain.Progress
}

func (r *progressRecorder) Report(message string, value float64) {
	r.reports = append(r.reports, domain.Progress{Message: message, Value: value})
}

func (r *progressRecorder) last() domain.Progress {
	if len(r.reports) == 0 {
		return domain.Progress{}
	}
	return r.reports[len(r.reports)-1]
}

func (r *progressRecorder) values() []float64 {
	out := make([]float64, len(r.reports))
	for i, p := range r.reports {
		out[i] = p.Value
	}
	return out
}
