package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type stubPrompts struct{ prompt string }

func (s stubPrompts) Load(string) (string, error) { return s.prompt, nil }

func (s stubPrompts) Reload() {}

func newTestSynthesizer(t *testing.T, handler http.HandlerFunc) *Synthesizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSynthesizer(Config{BaseURL: srv.URL, Model: "llama3"})
}

func TestNewSynthesizer_Defaults(t *testing.T) {
	s := NewSynthesizer(Config{})

	assert.Equal(t, "llama3:8b-instruct-q5_k_m", s.ModelName())
	assert.Equal(t, domain.DefaultOllamaURL, s.baseURL)
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
}

func TestSynthesizer_Synthesize(t *testing.T) {
	var got chatRequest
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  The answer.\n"},"done":true}`))
	})

	answer, err := s.Synthesize(context.Background(), "What?", "Source: a.pdf")

	require.NoError(t, err)
	assert.Equal(t, "The answer.", answer)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "CONTEXT:\nSource: a.pdf\n\nQUESTION:\nWhat?")
}

func TestSynthesizer_UsesPromptStore(t *testing.T) {
	var got chatRequest
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"content":"ok"}}`))
	})
	s.SetPromptStore(stubPrompts{prompt: "[%s] -> %s"})

	_, err := s.Synthesize(context.Background(), "q", "c")

	require.NoError(t, err)
	assert.Equal(t, "[c] -> q", got.Messages[0].Content)
}

func TestSynthesizer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "model not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"model 'llama3' not found"}`))
			},
			wantMsg: "Error communicating with the model (Ollama): model 'llama3' not found (status: 404)",
		},
		{
			name: "plain body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
			wantMsg: "Error communicating with the model (Ollama): overloaded (status: 503)",
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error":"context too long"}`))
			},
			wantMsg: "Error communicating with the model (Ollama): context too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, tt.handler)

			_, err := s.Synthesize(context.Background(), "q", "c")

			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestSynthesizer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	s := NewSynthesizer(Config{BaseURL: srv.URL})

	_, err := s.Synthesize(context.Background(), "q", "c")

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), domain.SynthesisErrorPrefix))
	assert.Contains(t, err.Error(), "could not connect to the Ollama server")
}

func TestSynthesizer_Ping(t *testing.T) {
	status := http.StatusOK
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(status)
	})

	assert.NoError(t, s.Ping(context.Background()))

	status = http.StatusInternalServerError
	assert.Error(t, s.Ping(context.Background()))
}
