package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// DefaultAnswerPrompt is the built-in answer template. The first %s
// receives the retrieved context and the second the user's question.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultAnswerPrompt = `You are an assistant that answers questions about the documents provided.
Answer the user's QUESTION using ONLY the CONTEXT below.
If the answer is not in the context, say "Based on the documents provided, I could not find information to answer this question."
Be concise and direct.
Where possible, mention the file name and page number the information came from.

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// promptTemplate is a built-in prompt and the number of %s verbs a
// replacement must keep.
type promptTemplate struct {
	text         string
	placeholders int
}

var builtinPrompts = map[string]promptTemplate{
	driven.PromptAnswer: {text: DefaultAnswerPrompt, placeholders: 2},
}

const promptsReadme = "# docqa Prompts\n\n" +
	"Edit `answer.txt` to change how answers are written. It needs two `%s`\n" +
	"verbs: the retrieved context first, then the question. A file with a\n" +
	"different number of verbs is ignored and the built-in prompt is used.\n\n" +
	"Changes apply to the next command, or after restarting the server.\n"

// PromptStore reads prompt templates from <dir>/<name>.txt. The directory
// and the default files are written on the first Load, so constructing a
// store does no I/O.
type PromptStore struct {
	dir string

	setup    sync.Once
	setupErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a prompt store over promptDir, or
// ~/.docqa/prompts when promptDir is empty.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".docqa", "prompts")
	}
	return &PromptStore{dir: promptDir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name. A missing or malformed file yields
// the built-in template; unknown names without a file are an error.
func (s *PromptStore) Load(name string) (string, error) {
	s.setup.Do(s.writeDefaults)

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	builtin, known := builtinPrompts[name]
	prompt, err := s.read(name)
	switch {
	case err != nil && !known:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case err != nil:
		if s.setupErr == nil && !os.IsNotExist(err) {
			logger.Warn("Reading prompt %s failed, using built-in: %v", name, err)
		}
		prompt = builtin.text
	case known && strings.Count(prompt, "%s") != builtin.placeholders:
		logger.Warn("Prompt %s needs %d %%s placeholders, using built-in", name, builtin.placeholders)
		prompt = builtin.text
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		prompt = existing
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// writeDefaults creates the directory, the README and any missing default
// file. Existing files are never overwritten.
func (s *PromptStore) writeDefaults() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.setupErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Debug("Prompt directory unavailable: %v", s.setupErr)
		return
	}

	files := map[string]string{"README.md": promptsReadme}
	for name, p := range builtinPrompts {
		files[name+".txt"] = p.text
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.setupErr = fmt.Errorf("write %s: %w", name, err)
			logger.Debug("Prompt defaults not written: %v", s.setupErr)
			return
		}
	}
}
