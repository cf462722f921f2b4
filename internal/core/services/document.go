package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// CollectionProvider supplies the current collection handle.
// Pipeline satisfies it, so both services follow a reopened store.
type CollectionProvider interface {
	Collection() driven.Collection
}

// DocumentService lists and deletes indexed document generations.
type DocumentService struct {
	provider CollectionProvider
}

// NewDocumentService creates a document service.
func NewDocumentService(provider CollectionProvider) *DocumentService {
	return &DocumentService{provider: provider}
}

func (s *DocumentService) collection() (driven.Collection, error) {
	c := s.provider.Collection()
	if c == nil {
		return nil, fmt.Errorf("%w: collection is not open", domain.ErrStoreUnavailable)
	}
	return c, nil
}

// List returns every document generation in order of first appearance.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	c, err := s.collection()
	if err != nil {
		return nil, err
	}
	return c.AggregateDocuments(ctx)
}

// Get returns the entry for docID.
func (s *DocumentService) Get(ctx context.Context, docID string) (*domain.DocumentInfo, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].DocID == docID {
			return &docs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
}

// Count returns the number of chunks of docID.
func (s *DocumentService) Count(ctx context.Context, docID string) (int, error) {
	c, err := s.collection()
	if err != nil {
		return 0, err
	}
	return c.CountChunksForDoc(ctx, docID)
}

// Delete removes docID and returns how many chunks went with it.
func (s *DocumentService) Delete(ctx context.Context, docID string) (int, error) {
	if strings.TrimSpace(docID) == "" {
		return 0, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	c, err := s.collection()
	if err != nil {
		return 0, err
	}

	before, err := c.CountChunksForDoc(ctx, docID)
	if err != nil {
		return 0, err
	}
	if err := c.DeleteByDoc(ctx, docID); err != nil {
		return 0, err
	}

	logger.Info("Deleted %s (%d chunks)", docID, before)
	return before, nil
}

// TotalChunks returns the number of stored chunks.
func (s *DocumentService) TotalChunks(ctx context.Context) (int, error) {
	c, err := s.collection()
	if err != nil {
		return 0, err
	}
	return c.Count(ctx)
}
