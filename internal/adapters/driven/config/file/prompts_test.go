package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T, files map[string]string) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "prompts"), store.Dir())
}

func TestPromptStore_FirstLoadWritesDefaults(t *testing.T) {
	store, dir := newTestPromptStore(t, nil)

	_, err := os.Stat(filepath.Join(dir, "answer.txt"))
	require.True(t, os.IsNotExist(err), "constructor must not write files")

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, DefaultAnswerPrompt, prompt)

	assert.FileExists(t, filepath.Join(dir, "answer.txt"))
	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "answer.txt")
}

func TestDefaultAnswerPrompt_ContextBeforeQuestion(t *testing.T) {
	rendered := fmt.Sprintf(DefaultAnswerPrompt, "CTX-BODY", "Q-BODY")

	ctx := strings.Index(rendered, "CTX-BODY")
	q := strings.Index(rendered, "Q-BODY")
	require.NotEqual(t, -1, ctx)
	require.NotEqual(t, -1, q)
	assert.Less(t, ctx, q)
	assert.True(t, strings.HasSuffix(rendered, "ANSWER:"))
}

func TestPromptStore_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "custom template", content: "Use %s to answer %s", want: "Use %s to answer %s"},
		{name: "trims whitespace", content: "\n  Ctx %s\nQ %s  \n\n", want: "Ctx %s\nQ %s"},
		{name: "missing question verb", content: "Only %s", want: DefaultAnswerPrompt},
		{name: "no verbs", content: "Answer politely.", want: DefaultAnswerPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestPromptStore(t, map[string]string{"answer.txt": tt.content})

			prompt, err := store.Load(driven.PromptAnswer)

			require.NoError(t, err)
			assert.Equal(t, tt.want, prompt)

			data, err := os.ReadFile(filepath.Join(dir, "answer.txt"))
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "user file must be kept")
		})
	}
}

func TestPromptStore_DeletedFileFallsBack(t *testing.T) {
	store, dir := newTestPromptStore(t, nil)
	_, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "answer.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, DefaultAnswerPrompt, prompt)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t, nil)

	_, err := store.Load("summary")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")
}

func TestPromptStore_UnknownPromptFromFile(t *testing.T) {
	store, _ := newTestPromptStore(t, map[string]string{"summary.txt": "Summarise: %s"})

	prompt, err := store.Load("summary")

	require.NoError(t, err)
	assert.Equal(t, "Summarise: %s", prompt)
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	store, dir := newTestPromptStore(t, nil)
	first, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "answer.txt"), []byte("new %s %s"), 0600))

	cached, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, "new %s %s", fresh)
}

func TestPromptStore_UnwritableDirUsesBuiltin(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, DefaultAnswerPrompt, prompt)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newTestPromptStore(t, nil)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.Load(driven.PromptAnswer)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Equal(t, DefaultAnswerPrompt, p)
	}
}
