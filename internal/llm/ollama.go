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

// OllamaBackend implements Backend over a local Ollama server
type OllamaBackend struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaBackend creates a new Ollama backend
func NewOllamaBackend(config Config) *OllamaBackend {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second // local models can be slow to load
	}

	return &OllamaBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
		config: config,
	}
}

// Name returns the provider name
func (b *OllamaBackend) Name() string {
	return "ollama"
}

// Configured is always true; Ollama needs no key
func (b *OllamaBackend) Configured() bool {
	return ValidCredential("ollama", "")
}

// Complete runs one non-streaming generate call in JSON mode
func (b *OllamaBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	model := b.config.model(p, "")
	if model == "" {
		return "", &BackendError{Provider: b.Name(), Kind: KindOther, Err: errors.New("ollama model must be specified (e.g., llama3.1:8b, mistral)")}
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: p.User,
		Stream: false,
		System: p.System,
		Format: "json",
		Options: ollamaOptions{
			Temperature: b.config.temperature(p),
			NumPredict:  b.config.maxTokens(p),
		},
	}

	resp, err := b.makeRequest(ctx, apiReq)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

// makeRequest makes an HTTP request to the Ollama API
func (b *OllamaBackend) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", b.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, newBackendError(b.Name(), 0, fmt.Errorf("connection to %s: %w", b.baseURL, err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newBackendError(b.Name(), 0, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, newBackendError(b.Name(), httpResp.StatusCode, errors.New(apiErr.Error))
		}
		return nil, newBackendError(b.Name(), httpResp.StatusCode, errors.New(string(respBody)))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &BackendError{Provider: b.Name(), Kind: KindParse, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return &resp, nil
}
