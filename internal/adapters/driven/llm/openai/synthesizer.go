// Package openai provides an answer synthesizer backed by the OpenAI chat API.
package openai

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
	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
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
const Provider = "OpenAI"

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI synthesizer.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Limiter throttles requests. Nil uses the OpenAI defaults.
	Limiter *ratelimit.Limiter

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Synthesizer answers questions using the OpenAI chat completions API.
type Synthesizer struct {
	client      *http.Client
	limiter     *ratelimit.Limiter
	baseURL     string
	apiKey      string
	model       string
	promptStore driven.PromptStore
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model    string              `json:"model"`
	Messages []chatCompletionMsg `json:"messages"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewSynthesizer creates a new OpenAI synthesizer. No request is made.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = domain.DefaultLLMModels()[domain.AIProviderOpenAI]
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(domain.AIProviderOpenAI)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Synthesizer{
		client:  client,
		limiter: cfg.Limiter,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Synthesize sends the rendered answer prompt as a single user message.
// Backend failures are returned as user-facing synthesis errors.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := llm.BuildAnswerPrompt(s.promptStore, contextBlock, question)
	logger.Debug("Sending prompt to OpenAI (model %s, %d chars)", s.model, len(prompt))

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model:    s.model,
		Messages: []chatCompletionMsg{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, "/chat/completions", jsonBody)
	if err != nil {
		return "", domain.NewSynthesisError(Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("read response: %w", err))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("decode response (status: %d): %w", resp.StatusCode, err))
	}
	if chatResp.Error != nil {
		return "", domain.NewSynthesisError(Provider,
			fmt.Errorf("%s (status: %d)", chatResp.Error.Message, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("status: %d", resp.StatusCode))
	}
	if len(chatResp.Choices) == 0 {
		return "", domain.NewSynthesisError(Provider, errors.New("no choices returned"))
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// do sends an authenticated request after waiting on the limiter. A 429
// response is closed and returned as ErrRateLimited.
func (s *Synthesizer) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if err := s.limiter.Observe(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
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

// Ping validates the API key by listing models, without running inference.
func (s *Synthesizer) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *Synthesizer) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
