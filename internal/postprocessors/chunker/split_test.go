package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestSplit_EmptyText(t *testing.T) {
	if chunks := Split("", 100, 10, domain.ChunkMetadata{}); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_Windows(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"shorter than one chunk", "hello", 10, 3, []string{"hello"}},
		{"exactly one chunk", "abcdefghij", 10, 3, []string{"abcdefghij"}},
		{"two windows", "abcdefghijkl", 10, 3, []string{"abcdefghij", "hijkl"}},
		{"no overlap", "abcdef", 2, 0, []string{"ab", "cd", "ef"}},
		{"overlap equals size", "abcd", 2, 2, []string{"ab", "bc", "cd"}},
		{"overlap above size", "abcd", 2, 5, []string{"ab", "bc", "cd"}},
		{"single rune windows", "abc", 1, 1, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.size, tt.overlap, domain.ChunkMetadata{})
			if len(chunks) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d: %v", len(tt.want), len(chunks), texts(chunks))
			}
			for i, want := range tt.want {
				if chunks[i].Text != want {
					t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i].Text)
				}
			}
		})
	}
}

func TestSplit_SingleChunkWhenSizeCoversText(t *testing.T) {
	text := "Conteúdo de teste."
	chunks := Split(text, 1000, 100, domain.ChunkMetadata{})
	if len(chunks) != 1 || chunks[0].Text != text {
		t.Fatalf("expected one chunk equal to text, got %v", texts(chunks))
	}
}

func TestSplit_Multibyte(t *testing.T) {
	text := strings.Repeat("ção", 7)
	for _, c := range Split(text, 4, 1, domain.ChunkMetadata{}) {
		if !utf8.ValidString(c.Text) {
			t.Fatalf("chunk split inside a rune: %q", c.Text)
		}
	}
}

func TestSplit_NonPositiveSizeUsesDefault(t *testing.T) {
	text := strings.Repeat("x", DefaultChunkSize+1)
	chunks := Split(text, 0, -5, domain.ChunkMetadata{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if utf8.RuneCountInString(chunks[0].Text) != DefaultChunkSize {
		t.Errorf("expected first chunk of default size")
	}
}

// TestSplit_CoverageProperty checks contiguous coverage with exact overlap
// over randomly generated inputs.
func TestSplit_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzçãé ")

	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(400)
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(runes)
		size := 2 + rng.Intn(60)
		overlap := 1 + rng.Intn(size-1)

		chunks := Split(text, size, overlap, domain.ChunkMetadata{})
		if len(chunks) == 0 {
			t.Fatalf("no chunks for non-empty text")
		}

		// Rebuild text: first chunk whole, then each next chunk minus the overlap.
		var rebuilt strings.Builder
		for i, c := range chunks {
			cr := []rune(c.Text)
			if i == 0 {
				rebuilt.WriteString(c.Text)
				continue
			}
			prev := []rune(chunks[i-1].Text)
			if string(prev[len(prev)-overlap:]) != string(cr[:overlap]) {
				t.Fatalf("iter %d: chunks %d and %d do not overlap by %d", iter, i-1, i, overlap)
			}
			rebuilt.WriteString(string(cr[overlap:]))
		}
		if rebuilt.String() != text {
			t.Fatalf("iter %d: chunks do not cover text (size=%d overlap=%d)", iter, size, overlap)
		}

		last := []rune(chunks[len(chunks)-1].Text)
		if !strings.HasSuffix(text, string(last)) {
			t.Fatalf("iter %d: last chunk does not end at end of text", iter)
		}
		for i, c := range chunks {
			if c.Metadata.SequenceID != i {
				t.Fatalf("iter %d: sequence id %d at position %d", iter, c.Metadata.SequenceID, i)
			}
		}
	}
}

// TestSplit_TerminatesWhenOverlapNotSmaller checks termination for overlap >= size.
func TestSplit_TerminatesWhenOverlapNotSmaller(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(200)
		size := 1 + rng.Intn(20)
		overlap := size + rng.Intn(20)
		text := strings.Repeat("z", n)

		chunks := Split(text, size, overlap, domain.ChunkMetadata{})
		if len(chunks) == 0 {
			t.Fatalf("expected at least one chunk")
		}
		if len(chunks) > n {
			t.Fatalf("expected at most %d chunks, got %d", n, len(chunks))
		}
		lastLen := utf8.RuneCountInString(chunks[len(chunks)-1].Text)
		if n >= size && lastLen != size {
			t.Fatalf("last window should be full when text is longer than size")
		}
	}
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
