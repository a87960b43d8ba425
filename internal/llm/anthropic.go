package llm

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

	"github.com/thedivinememe/eoq-search-reranker/internal/util"
)

// AnthropicBackend implements Backend over the Anthropic Messages API
type AnthropicBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicBackend creates a new Anthropic backend
func NewAnthropicBackend(config Config) *AnthropicBackend {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicBackend{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
		config: config,
	}
}

// Name returns the provider name
func (b *AnthropicBackend) Name() string {
	return "anthropic"
}

// Configured reports whether the API key looks like an Anthropic key
func (b *AnthropicBackend) Configured() bool {
	return ValidCredential("anthropic", b.apiKey)
}

// Complete runs one Messages API call and returns the first text block
func (b *AnthropicBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	apiReq := anthropicRequest{
		Model:     b.config.model(p, "claude-3-5-haiku-20241022"),
		MaxTokens: b.config.maxTokens(p),
		System:    p.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: p.User},
		},
		Temperature: b.config.temperature(p),
	}

	resp, err := b.makeRequest(ctx, apiReq)
	if err != nil {
		return "", err
	}

	for _, c := range resp.Content {
		if c.Type == "text" || c.Type == "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", &BackendError{Provider: b.Name(), Kind: KindParse, Err: errors.New("no text content in response")}
}

// makeRequest makes an HTTP request to the Anthropic API
func (b *AnthropicBackend) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", b.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, newBackendError(b.Name(), 0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newBackendError(b.Name(), 0, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, newBackendError(b.Name(), httpResp.StatusCode, fmt.Errorf("%s - %s", apiErr.Error.Type, apiErr.Error.Message))
		}
		return nil, newBackendError(b.Name(), httpResp.StatusCode, errors.New(string(respBody)))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &BackendError{Provider: b.Name(), Kind: KindParse, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return &resp, nil
}
