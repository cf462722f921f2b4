package domain

// SearchHit is a chunk returned by a similarity search.
type SearchHit struct {
	// ID is the chunk store id.
	ID string

	Text string

	Metadata ChunkMetadata

	// Distance to the query vector. Lower is nearer.
	Distance float64
}

// ChunkFilter restricts a search to matching chunks.
// Zero-valued fields are ignored, so the zero filter matches everything.
type ChunkFilter struct {
	DocID    string
	Filename string
}

// IsEmpty reports whether the filter matches every chunk.
func (f ChunkFilter) IsEmpty() bool {
	return f.DocID == "" && f.Filename == ""
}

// Matches reports whether metadata satisfies the filter. DocID is compared
// with the group key, so legacy chunks match their filename.
func (f ChunkFilter) Matches(m ChunkMetadata) bool {
	if f.DocID != "" && m.GroupKey() != f.DocID {
		return false
	}
	if f.Filename != "" && m.Filename != f.Filename {
		return false
	}
	return true
}

// Source describes one retrieved chunk backing an answer.
type Source struct {
	Filename       string `json:"filename"`
	UnitOrdinal    int    `json:"unit_ordinal"`
	UnitTitle      string `json:"unit_title"`
	DocumentTitle  string `json:"document_title"`
	DocumentAuthor string `json:"document_author"`

	// Excerpt is a truncated copy of the chunk text.
	Excerpt string `json:"excerpt"`
}

// Answer is the result of a question against the collection.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`

	// Context is the raw text block handed to the synthesiser.
	Context string `json:"context,omitempty"`
}
