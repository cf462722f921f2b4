package domain

// Progress sentinel values.
const (
	// ProgressFailed marks a terminal failure. No further updates follow it.
	ProgressFailed = -1.0

	// ProgressComplete marks successful completion.
	ProgressComplete = 1.0
)

// Progress is one update emitted during an indexing operation.
type Progress struct {
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

// IsTerminal reports whether the update ends the operation.
func (p Progress) IsTerminal() bool {
	return p.Value < 0 || p.Value >= ProgressComplete
}

// Failed reports whether the update is the failure sentinel.
func (p Progress) Failed() bool {
	return p.Value < 0
}
