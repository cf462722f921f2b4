// Package ollama provides an answer synthesizer backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/llm"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Synthesizer implements the interfaces.
var (
	_ driven.AnswerSynthesizer = (*Synthesizer)(nil)
	_ driven.PromptStoreAware  = (*Synthesizer)(nil)
)

// Provider is the name shown in user-facing errors.
const Provider = "Ollama"

// DefaultTimeout bounds a single answer request.
const DefaultTimeout = 300 * time.Second

// Config holds configuration for the Ollama synthesizer.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3:8b-instruct-q5_k_m).
	Model string

	// Timeout is the request timeout (default: 300s). Local models on CPU
	// can take minutes on a long context.
	Timeout time.Duration

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Synthesizer answers questions using the Ollama chat API.
type Synthesizer struct {
	client      *http.Client
	baseURL     string
	model       string
	promptStore driven.PromptStore
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewSynthesizer creates a new Ollama synthesizer. No request is made.
func NewSynthesizer(cfg Config) *Synthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = domain.DefaultLLMModels()[domain.AIProviderOllama]
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Synthesizer{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Synthesize sends the rendered answer prompt as a single user message.
// Backend failures are returned as user-facing synthesis errors.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := llm.BuildAnswerPrompt(s.promptStore, contextBlock, question)
	logger.Debug("Sending prompt to Ollama (model %s, %d chars)", s.model, len(prompt))

	jsonBody, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", domain.NewSynthesisError(Provider,
			fmt.Errorf("could not connect to the Ollama server at %s: %w", s.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		msg := apiErrorMessage(body)
		if resp.StatusCode == http.StatusNotFound {
			logger.Warn("Model %s not found; pull it with 'ollama pull %s'", s.model, s.model)
		}
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("%s (status: %d)", msg, resp.StatusCode))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("decode response: %w", err))
	}
	if chatResp.Error != "" {
		return "", domain.NewSynthesisError(Provider, errors.New(chatResp.Error))
	}

	logger.Debug("Received answer from Ollama")
	return strings.TrimSpace(chatResp.Message.Content), nil
}

// apiErrorMessage extracts the "error" field of an Ollama error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// ModelName returns the name of the chat model being used.
func (s *Synthesizer) ModelName() string {
	return s.model
}

// SetPromptStore sets the prompt store for loading the answer template.
// If not set, the synthesizer uses the built-in template.
func (s *Synthesizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping validates the server is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *Synthesizer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
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
	return nil
}

// Close releases resources.
func (s *Synthesizer) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
