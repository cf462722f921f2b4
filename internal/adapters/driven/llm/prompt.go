// Package llm holds what the answer synthesizers share: prompt rendering
// from the editable answer template.
package llm

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// AnswerTemplate returns the answer template from store, or the built-in
// one when store is nil, fails, or holds a template without exactly two
// %s verbs.
func AnswerTemplate(store driven.PromptStore) string {
	if store == nil {
		return file.DefaultAnswerPrompt
	}
	tmpl, err := store.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("Could not load answer prompt, using default: %v", err)
		return file.DefaultAnswerPrompt
	}
	if n := strings.Count(tmpl, "%s"); n != 2 {
		logger.Warn("Answer prompt has %d %%s placeholders, want 2; using default", n)
		return file.DefaultAnswerPrompt
	}
	return tmpl
}

// BuildAnswerPrompt renders the answer template: context first, then the
// question.
func BuildAnswerPrompt(store driven.PromptStore, contextBlock, question string) string {
	return fmt.Sprintf(AnswerTemplate(store), contextBlock, question)
}
