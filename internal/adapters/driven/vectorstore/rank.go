package vectorstore

import (
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Rank sorts hits by ascending distance, breaking ties by id, and keeps
// the first topK. topK <= 0 keeps nothing.
func Rank(hits []domain.SearchHit, topK int) []domain.SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if topK < 0 {
		topK = 0
	}
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}
