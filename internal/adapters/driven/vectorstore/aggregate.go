package vectorstore

import "github.com/custodia-labs/docqa/internal/core/domain"

// Aggregator groups chunk metadata into documents in order of first
// appearance. The first chunk of a group supplies its filename, title
// and author.
type Aggregator struct {
	order []string
	docs  map[string]*domain.DocumentInfo
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{docs: make(map[string]*domain.DocumentInfo)}
}

// Add counts one chunk.
func (a *Aggregator) Add(m domain.ChunkMetadata) {
	key := m.GroupKey()
	if doc, ok := a.docs[key]; ok {
		doc.ChunkCount++
		return
	}
	a.order = append(a.order, key)
	a.docs[key] = &domain.DocumentInfo{
		DocID:      key,
		Filename:   m.Filename,
		Author:     m.DocumentAuthor,
		Title:      m.DocumentTitle,
		ChunkCount: 1,
	}
}

// Documents returns the groups in order of first appearance.
func (a *Aggregator) Documents() []domain.DocumentInfo {
	out := make([]domain.DocumentInfo, len(a.order))
	for i, key := range a.order {
		out[i] = *a.docs[key]
	}
	return out
}

// BelongsTo reports whether m is part of the document identified by key.
// Legacy chunks without a doc id are addressed by filename.
func BelongsTo(m domain.ChunkMetadata, key string) bool {
	return m.GroupKey() == key
}
