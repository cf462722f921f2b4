// Package ollama provides an embedding model backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Model implements the interface.
var _ driven.EmbeddingModel = (*Model)(nil)

// Default configuration values.
const (
	DefaultModel   = "mxbai-embed-large"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Ollama embedding model.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: mxbai-embed-large).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the known size of Model. Zero lets the
	// generator probe it.
	Dimensions int

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Model generates embeddings using Ollama.
type Model struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// tagsResponse lists locally available models.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewModel creates a new Ollama embedding model. No request is made.
func NewModel(cfg Config) *Model {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Model{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// NewLoader returns a loader that builds the model and pings it, so a
// missing server or model fails the load rather than the first batch.
func NewLoader(cfg Config) driven.ModelLoader {
	return func(ctx context.Context) (driven.EmbeddingModel, error) {
		m := NewModel(cfg)
		logger.Debug("Loading Ollama embedding model %s at %s", m.model, m.baseURL)
		if err := m.Ping(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// EmbedBatch generates one embedding per text with a single request.
func (m *Model) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(embedRequest{Model: m.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", embedResp.Error)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(embedResp.Embeddings), len(texts))
	}

	return embedResp.Embeddings, nil
}

// Dimensions returns the known vector size of the model, or 0.
func (m *Model) Dimensions() int {
	return m.dimensions
}

// ModelName returns the name of the embedding model being used.
func (m *Model) ModelName() string {
	return m.model
}

// Ping checks the server is reachable and has the model pulled.
func (m *Model) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, tm := range tags.Models {
		names[i] = tm.Name
	}
	if !HasModel(names, m.model) {
		return fmt.Errorf("ollama: model %q is not pulled (run: ollama pull %s)", m.model, m.model)
	}
	return nil
}

// HasModel reports whether name is among the listed model names. A name
// without a tag matches its ":latest" variant.
func HasModel(names []string, name string) bool {
	for _, got := range names {
		if got == name || (!strings.Contains(name, ":") && got == name+":latest") {
			return true
		}
	}
	return false
}

// Close releases resources.
func (m *Model) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
