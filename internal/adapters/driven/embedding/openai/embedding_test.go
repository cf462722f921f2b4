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

func newTestModel(t *testing.T, handler http.HandlerFunc, cfg Config) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	cfg.BaseURL = srv.URL
	cfg.Limiter = ratelimit.NewWithConfig(ratelimit.Config{})
	m, err := NewModel(cfg)
	require.NoError(t, err)
	return m
}

func TestNewModel_RequiresKey(t *testing.T) {
	_, err := NewModel(Config{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewModel_Defaults(t *testing.T) {
	m, err := NewModel(Config{APIKey: "sk"})

	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", m.ModelName())
	assert.Equal(t, 1536, m.Dimensions())
	assert.Equal(t, DefaultBaseURL, m.baseURL)
	assert.NotNil(t, m.limiter)
}

func TestModel_EmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}, Config{})

	vecs, err := m.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Zero(t, got.Dimensions, "default dimension is not sent")
}

func TestModel_EmbedBatch_DimensionOverride(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-large", 256},
		{"text-embedding-ada-002", 0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var got embeddingRequest
			m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
			}, Config{Model: tt.model, Dimensions: 256})

			_, err := m.EmbedBatch(context.Background(), []string{"x"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dimensions)
			assert.Equal(t, 256, m.Dimensions())
		})
	}
}

func TestModel_EmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, "openai error: Incorrect API key"},
		{"status without error", http.StatusBadGateway, `{}`, "openai error (status 502)"},
		{"bad json", http.StatusOK, `not json`, "decode response"},
		{"missing index", http.StatusOK, `{"data":[{"index":0,"embedding":[1]}]}`, "no embedding for text 1"},
		{"out of range", http.StatusOK, `{"data":[{"index":5,"embedding":[1]}]}`, "out of range index 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Config{})

			_, err := m.EmbedBatch(context.Background(), []string{"a", "b"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestModel_EmbedBatch_RateLimited(t *testing.T) {
	calls := 0
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{})

	_, err := m.EmbedBatch(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.False(t, m.limiter.Allow(), "backoff window is open")
	assert.Equal(t, 1, calls)
}

func TestModel_Ping(t *testing.T) {
	status := http.StatusOK
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, Config{})

	assert.NoError(t, m.Ping(context.Background()))

	status = http.StatusUnauthorized
	err := m.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewLoader(t *testing.T) {
	_, err := NewLoader(Config{})(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	m, err := NewLoader(Config{APIKey: "sk", BaseURL: srv.URL})(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, m.ModelName())
}
