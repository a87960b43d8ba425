package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "https://secure-proxy.local:3129", "internal.example.com")

	tests := []struct {
		target string
		want   string
	}{
		{"http://example.com/page", "http://proxy.local:3128"},
		{"https://example.com/page", "https://secure-proxy.local:3129"},
		{"https://internal.example.com/page", ""},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.target, nil)
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.target, err)
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("proxy(%s) = %v, want direct", tt.target, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("proxy(%s) = %v, want %s", tt.target, got, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "")
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	got, err := proxy(req)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy for https target, got %v", got)
	}
}
