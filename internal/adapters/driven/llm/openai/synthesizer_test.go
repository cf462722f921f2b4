package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestSynthesizer(t *testing.T, handler http.HandlerFunc) *Synthesizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSynthesizer(Config{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Limiter: ratelimit.NewWithConfig(ratelimit.Config{}),
	})
	require.NoError(t, err)
	return s
}

func TestNewSynthesizer(t *testing.T) {
	_, err := NewSynthesizer(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := NewSynthesizer(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", s.ModelName())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
}

func TestSynthesizer_Synthesize(t *testing.T) {
	var got chatCompletionRequest
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" Paris. "},"finish_reason":"stop"}]}`))
	})

	answer, err := s.Synthesize(context.Background(), "Capital?", "Source: geo.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Source: geo.pdf")
	assert.Contains(t, got.Messages[0].Content, "Capital?")
}

func TestSynthesizer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`,
			"Error communicating with the model (OpenAI): Incorrect API key (status: 401)"},
		{"status only", http.StatusBadGateway, `{}`,
			"Error communicating with the model (OpenAI): status: 502"},
		{"no choices", http.StatusOK, `{"choices":[]}`,
			"Error communicating with the model (OpenAI): no choices returned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := s.Synthesize(context.Background(), "q", "c")

			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestSynthesizer_RateLimited(t *testing.T) {
	s := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Synthesize(context.Background(), "q", "c")

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), domain.SynthesisErrorPrefix)
	assert.False(t, s.limiter.Allow())
}

func TestSynthesizer_Ping(t *testing.T) {
	status := http.StatusOK
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(status)
	})

	assert.NoError(t, s.Ping(context.Background()))

	status = http.StatusForbidden
	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
