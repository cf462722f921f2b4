package api

import (
	"context"
	"os"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

type mockQueryService struct {
	answer   *domain.Answer
	err      error
	question string
	opts     driving.QueryOptions
}

func (m *mockQueryService) Query(ctx context.Context, question string) (*domain.Answer, error) {
	return m.QueryWithOptions(ctx, question, driving.QueryOptions{})
}

func (m *mockQueryService) QueryWithFilter(
	ctx context.Context,
	question string,
	filter domain.ChunkFilter,
) (*domain.Answer, error) {
	return m.QueryWithOptions(ctx, question, driving.QueryOptions{Filter: filter})
}

func (m *mockQueryService) QueryWithOptions(
	_ context.Context,
	question string,
	opts driving.QueryOptions,
) (*domain.Answer, error) {
	m.question = question
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockDocumentService struct {
	documents []domain.DocumentInfo
	deleted   int
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, docID string) (*domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].DocID == docID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Count(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) (int, error) {
	return m.deleted, m.err
}

func (m *mockDocumentService) TotalChunks(_ context.Context) (int, error) {
	total := 0
	for i := range m.documents {
		total += m.documents[i].ChunkCount
	}
	return total, m.err
}

// mockIndexService records the file it was asked to index.
type mockIndexService struct {
	result   *driving.IndexResult
	err      error
	messages []domain.Progress

	path    string
	name    string
	opts    driving.IndexOptions
	content string
}

func (m *mockIndexService) IndexDocument(
	ctx context.Context,
	path, name string,
	sink driven.ProgressSink,
) (bool, error) {
	_, err := m.IndexDocumentWithOptions(ctx, path, name, sink, driving.IndexOptions{})
	return err == nil, err
}

func (m *mockIndexService) IndexDocumentWithOptions(
	_ context.Context,
	path, name string,
	sink driven.ProgressSink,
	opts driving.IndexOptions,
) (*driving.IndexResult, error) {
	m.path, m.name, m.opts = path, name, opts
	if data, err := os.ReadFile(path); err == nil {
		m.content = string(data)
	}
	for _, p := range m.messages {
		sink.Report(p.Message, p.Value)
	}
	return m.result, m.err
}
