package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"Mozilla/5.0 (compatible; EOQ-Extension/1.0)": "EOQ-Extension",
		"eoq/0.1":  "eoq",
		"":         "",
		"Agent":    "Agent",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRobotsChecker_Allowed(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: EOQ-Extension\nDisallow: /private\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Mozilla/5.0 (compatible; EOQ-Extension/1.0)", server.Client())
	ctx := context.Background()

	allowed, err := checker.Allowed(ctx, server.URL+"/public/page")
	if err != nil || !allowed {
		t.Errorf("expected public path allowed, got %v %v", allowed, err)
	}

	allowed, err = checker.Allowed(ctx, server.URL+"/private/page")
	if err != nil || allowed {
		t.Errorf("expected private path disallowed, got %v %v", allowed, err)
	}

	if hits.Load() != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("eoq", server.Client())
	allowed, err := checker.Allowed(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("expected allowed when robots.txt is missing, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_BadURL(t *testing.T) {
	checker := NewRobotsChecker("eoq", nil)
	if _, err := checker.Allowed(context.Background(), "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}
