package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
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
	if m.answer == nil {
		return &domain.Answer{}, nil
	}
	return m.answer, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
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

func (m *mockDocumentService) Count(ctx context.Context, docID string) (int, error) {
	info, err := m.Get(ctx, docID)
	if err != nil {
		return 0, nil //nolint:nilerr // unknown ids count zero
	}
	return info.ChunkCount, nil
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

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result   *driving.IndexResult
	err      error
	messages []domain.Progress
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
	_, _ string,
	sink driven.ProgressSink,
	_ driving.IndexOptions,
) (*driving.IndexResult, error) {
	for _, p := range m.messages {
		sink.Report(p.Message, p.Value)
	}
	return m.result, m.err
}

func testDocuments() []domain.DocumentInfo {
	return []domain.DocumentInfo{
		{DocID: "docid_a.pdf_111111", Filename: "a.pdf", Title: "A", Author: "Ann", ChunkCount: 3},
		{DocID: "docid_b.epub_222222", Filename: "b.epub", Title: "B", Author: "Bob", ChunkCount: 2},
	}
}
