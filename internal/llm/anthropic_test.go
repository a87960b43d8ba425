package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicBackend_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("Expected x-api-key header sk-ant-test, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "sys" {
			t.Errorf("Expected system prompt in top-level field, got %q", req.System)
		}
		if req.Temperature != 0.2 {
			t.Errorf("Expected temperature 0.2, got %v", req.Temperature)
		}

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			ID:      "msg_123",
			Type:    "message",
			Role:    "assistant",
			Content: []anthropicContent{{Type: "text", Text: `{"score": 0.7, "reasoning": "ok"}`}},
			Model:   "claude-3-5-haiku-20241022",
		})
	}))
	defer server.Close()

	backend := NewAnthropicBackend(Config{APIKey: "sk-ant-test", BaseURL: server.URL, Timeout: 5, Temperature: 0.2})
	got, err := backend.Complete(context.Background(), Prompt{System: "sys", User: "score"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.Contains(got, `"score": 0.7`) {
		t.Errorf("Unexpected completion: %q", got)
	}
}

func TestAnthropicBackend_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]string{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer server.Close()

	backend := NewAnthropicBackend(Config{APIKey: "sk-ant-bad", BaseURL: server.URL, Timeout: 5})
	_, err := backend.Complete(context.Background(), Prompt{User: "x"})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("Expected *BackendError, got %v", err)
	}
	if be.Kind != KindAuth {
		t.Errorf("Expected auth kind, got %s", be.Kind)
	}
	if !strings.Contains(err.Error(), "authentication_error") {
		t.Errorf("Expected error details, got %v", err)
	}
}

func TestAnthropicBackend_Complete_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	backend := NewAnthropicBackend(Config{APIKey: "sk-ant-test", BaseURL: server.URL, Timeout: 5})
	_, err := backend.Complete(context.Background(), Prompt{User: "x"})
	if Classify(err) != KindParse {
		t.Errorf("Expected parse failure, got %v", err)
	}
}

func TestAnthropicBackend_Configured(t *testing.T) {
	if NewAnthropicBackend(Config{APIKey: "sk-openai-style"}).Configured() {
		t.Error("Expected plain sk- key to be rejected")
	}
	if !NewAnthropicBackend(Config{APIKey: "sk-ant-123"}).Configured() {
		t.Error("Expected sk-ant- key to be accepted")
	}
}
