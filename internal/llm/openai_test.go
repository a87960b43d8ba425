package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIBackend_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Expected Authorization header Bearer sk-test, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens != 250 {
			t.Errorf("Expected max_tokens 250, got %d", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("Expected system and user messages, got %+v", req.Messages)
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: "  {\"score\": 0.8}  ",
					},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5, MaxTokens: 250})
	if !backend.Configured() {
		t.Fatal("Expected sk- key to be configured")
	}

	got, err := backend.Complete(context.Background(), Prompt{System: "sys", User: "score this"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"score": 0.8}` {
		t.Errorf("Expected trimmed content, got %q", got)
	}
}

func TestOpenAIBackend_Complete_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5})
	_, err := backend.Complete(context.Background(), Prompt{User: "x"})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("Expected *BackendError, got %v", err)
	}
	if be.Kind != KindRateLimit || be.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected rate_limit/429, got %s/%d", be.Kind, be.StatusCode)
	}
}

func TestOpenAIBackend_Complete_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-wrong", BaseURL: server.URL, Timeout: 5})
	_, err := backend.Complete(context.Background(), Prompt{User: "x"})
	if Classify(err) != KindAuth {
		t.Errorf("Expected auth failure, got %v (%s)", err, Classify(err))
	}
}

func TestOpenAIBackend_Complete_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5})
	if _, err := backend.Complete(context.Background(), Prompt{User: "x"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOpenAIBackend_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "empty"})
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5})
	_, err := backend.Complete(context.Background(), Prompt{User: "x"})
	if Classify(err) != KindParse {
		t.Errorf("Expected parse failure for empty choices, got %v", err)
	}
}

func TestOpenAIBackend_Complete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	backend := NewOpenAIBackend(Config{APIKey: "sk-test", BaseURL: server.URL, Timeout: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := backend.Complete(ctx, Prompt{User: "x"})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if Classify(err) != KindNetwork {
		t.Errorf("Expected network failure, got %s: %v", Classify(err), err)
	}
}

func TestOpenAIBackend_Configured(t *testing.T) {
	for key, want := range map[string]bool{
		"":           false,
		"not-a-key":  false,
		"sk-abc":     true,
		"  sk-abc  ": true,
	} {
		if got := NewOpenAIBackend(Config{APIKey: key}).Configured(); got != want {
			t.Errorf("Configured(%q) = %v, want %v", key, got, want)
		}
	}
}
