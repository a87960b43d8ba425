package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/thedivinememe/eoq-search-reranker/internal/util"
)

// OpenAIBackend implements Backend over the OpenAI Chat Completions API
type OpenAIBackend struct {
	client *openai.Client
	config Config
}

// NewOpenAIBackend creates a new OpenAI backend
func NewOpenAIBackend(config Config) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Name returns the provider name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Configured reports whether the API key looks like an OpenAI key
func (b *OpenAIBackend) Configured() bool {
	return ValidCredential("openai", b.config.APIKey)
}

// Complete runs one chat completion
func (b *OpenAIBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	timeout := time.Duration(b.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.config.model(p, openai.GPT4oMini),
		Messages:    messages,
		MaxTokens:   b.config.maxTokens(p),
		Temperature: float32(b.config.temperature(p)),
	})
	if err != nil {
		return "", newBackendError(b.Name(), openAIStatus(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: b.Name(), Kind: KindParse, Err: errors.New("no choices in response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
