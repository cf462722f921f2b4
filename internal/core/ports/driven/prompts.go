package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in
	// default or an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswer grounds an answer in retrieved context.
	// The template expects two %s placeholders: context, then question.
	PromptAnswer = "answer"
)

// PromptStoreAware is an optional interface for synthesizers that can use
// custom prompts injected after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the synthesizer uses its hardcoded default prompt.
	SetPromptStore(store PromptStore)
}
