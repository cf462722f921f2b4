// Package anthropic provides an answer synthesizer backed by the Anthropic
// Messages API.
package anthropic

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
const Provider = "Anthropic"

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic synthesizer.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxTokens caps the answer length (default: 1024).
	MaxTokens int

	// Limiter throttles requests. Nil uses the Anthropic defaults.
	Limiter *ratelimit.Limiter

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Synthesizer answers questions using the Anthropic Messages API.
type Synthesizer struct {
	client      *http.Client
	limiter     *ratelimit.Limiter
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	promptStore driven.PromptStore
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model     string            `json:"model"`
	Messages  []messagesMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewSynthesizer creates a new Anthropic synthesizer. No request is made.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = domain.DefaultLLMModels()[domain.AIProviderAnthropic]
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(domain.AIProviderAnthropic)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Synthesizer{
		client:    client,
		limiter:   cfg.Limiter,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Synthesize sends the rendered answer prompt as a single user message.
// Backend failures are returned as user-facing synthesis errors.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := llm.BuildAnswerPrompt(s.promptStore, contextBlock, question)
	logger.Debug("Sending prompt to Anthropic (model %s, %d chars)", s.model, len(prompt))

	jsonBody, err := json.Marshal(messagesRequest{
		Model:     s.model,
		Messages:  []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, "/v1/messages", jsonBody)
	if err != nil {
		return "", domain.NewSynthesisError(Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("read response: %w", err))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("decode response (status: %d): %w", resp.StatusCode, err))
	}
	if msgResp.Error != nil {
		return "", domain.NewSynthesisError(Provider,
			fmt.Errorf("%s (status: %d)", msgResp.Error.Message, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.NewSynthesisError(Provider, fmt.Errorf("status: %d", resp.StatusCode))
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	if result.Len() == 0 {
		return "", domain.NewSynthesisError(Provider, errors.New("no response content returned"))
	}

	return strings.TrimSpace(result.String()), nil
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
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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

// ModelName returns the name of the model being used.
func (s *Synthesizer) ModelName() string {
	return s.model
}

// SetPromptStore sets the prompt store for loading the answer template.
// If not set, the synthesizer uses the built-in template.
func (s *Synthesizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping validates the API key by checking the /v1/models endpoint.
func (s *Synthesizer) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *Synthesizer) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
