package cli

import (
	"context"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/memory"
	vsmemory "github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
)

// mockIndexService records every call and replays scripted progress.
type mockIndexService struct {
	calls    []indexCall
	result   *driving.IndexResult
	errFor   map[string]error
	messages []domain.Progress
}

type indexCall struct {
	path string
	name string
	opts driving.IndexOptions
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
	m.calls = append(m.calls, indexCall{path: path, name: name, opts: opts})
	for _, p := range m.messages {
		sink.Report(p.Message, p.Value)
	}
	if err := m.errFor[name]; err != nil {
		sink.Report("Failed to process '"+name+"'.", domain.ProgressFailed)
		return nil, err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driving.IndexResult{DocID: "docid_" + name + "_abcdef", Chunks: 1}, nil
}

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
	deleted   map[string]int
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

func (m *mockDocumentService) Count(_ context.Context, docID string) (int, error) {
	for i := range m.documents {
		if m.documents[i].DocID == docID {
			return m.documents[i].ChunkCount, m.err
		}
	}
	return 0, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, docID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleted[docID], nil
}

func (m *mockDocumentService) TotalChunks(_ context.Context) (int, error) {
	total := 0
	for i := range m.documents {
		total += m.documents[i].ChunkCount
	}
	return total, m.err
}

// mockStager stages by renaming into a fixed directory without copying.
type mockStager struct {
	dir     string
	staged  []string
	removed []string
	err     error
}

func (s *mockStager) Stage(_ context.Context, _ string, displayName string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	s.staged = append(s.staged, displayName)
	return s.dir + "/" + displayName, displayName, nil
}

func (s *mockStager) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}

func (s *mockStager) Dir() string { return s.dir }

// binderFunc adapts a func to CollectionBinder.
type binderFunc func(driven.Collection)

func (f binderFunc) SetCollection(c driven.Collection) { f(c) }

// testServices holds the mocks wired by setupTestServices.
type testServices struct {
	index    *mockIndexService
	query    *mockQueryService
	document *mockDocumentService
	config   *memory.ConfigStore
	settings *services.SettingsService
	stager   *mockStager
	store    *vsmemory.Store
	bound    []driven.Collection
}

var testMocks *testServices

// setupTestServices wires mocks into the command globals and returns a
// cleanup that clears them and resets flag variables.
func setupTestServices() func() {
	config := memory.NewConfigStore()
	ts := &testServices{
		index: &mockIndexService{},
		query: &mockQueryService{answer: &domain.Answer{
			Answer: "O documento diz: Conteúdo de teste.",
			Sources: []domain.Source{{
				Filename:       "teste.pdf",
				UnitOrdinal:    1,
				UnitTitle:      "Page 1",
				DocumentTitle:  "Teste",
				DocumentAuthor: "Autor",
				Excerpt:        "Conteúdo de teste....",
			}},
			Context: "Source: teste.pdf, Section/Page: 1 (Section/Page Title: Page 1)\nContent: Conteúdo de teste.",
		}},
		document: &mockDocumentService{
			documents: []domain.DocumentInfo{
				{DocID: "docid_teste.pdf_111111", Filename: "teste.pdf", Title: "Teste", Author: "Autor", ChunkCount: 1},
				{DocID: "docid_book.epub_222222", Filename: "book.epub", Title: "Book", Author: "Ann", ChunkCount: 4},
			},
			deleted: map[string]int{"docid_teste.pdf_111111": 1},
		},
		config:   config,
		settings: services.NewSettingsService(config),
		stager:   &mockStager{dir: "/staged"},
		store:    vsmemory.NewStore("docqa_documents", domain.DistanceCosine),
	}

	SetServices(&Services{
		Index:      ts.index,
		Query:      ts.query,
		Document:   ts.document,
		Settings:   ts.settings,
		Config:     ts.config,
		Stager:     ts.stager,
		Store:      ts.store,
		Binder:     binderFunc(func(c driven.Collection) { ts.bound = append(ts.bound, c) }),
		Extensions: []string{".pdf", ".txt"},
	})
	testMocks = ts

	return func() {
		SetServices(nil)
		testMocks = nil
		resetFlags()
	}
}

func resetFlags() {
	indexName, indexReplace, indexStage = "", false, false
	askJSON, askTopK, askDocID, askShowContext = false, 0, "", false
	resetYes = false
	watchSettle, watchReplace, watchExisting = DefaultSettle, true, false
	verboseFlag, configDirFlag = false, ""
	mcpHost, mcpPort = "127.0.0.1", 0
	serveHost, servePort = "127.0.0.1", 0
}
