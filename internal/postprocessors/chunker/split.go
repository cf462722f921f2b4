package chunker

import "github.com/custodia-labs/docqa/internal/core/domain"

// Split cuts text into overlapping windows of size characters.
//
// The cursor advances by size-overlap, or by 1 when overlap >= size. Splitting
// stops as soon as a window reaches the end of text, so the final window is
// emitted once. Windows are counted in runes. Each chunk carries a copy of
// base with SequenceID set to its zero-based position.
func Split(text string, size, overlap int, base domain.ChunkMetadata) []domain.Chunk {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)

	step := size - overlap
	if step < 1 {
		step = 1
	}

	chunks := make([]domain.Chunk, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}

		meta := base
		meta.SequenceID = len(chunks)
		chunks = append(chunks, domain.Chunk{
			Text:     string(runes[start:end]),
			Metadata: meta,
		})

		if end == n {
			break
		}
	}

	return chunks
}
