package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions for direct fetches.
// Hosts whose robots.txt cannot be retrieved are treated as allowing everything.
type RobotsChecker struct {
	mu         sync.RWMutex
	hosts      map[string]robotsEntry
	httpClient *http.Client
	agent      string
	ttl        time.Duration
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsChecker creates a checker. client may be nil.
func NewRobotsChecker(userAgent string, client *http.Client) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RobotsChecker{
		hosts:      make(map[string]robotsEntry),
		httpClient: client,
		agent:      NormalizeUserAgent(userAgent),
		ttl:        24 * time.Hour,
	}
}

// Allowed reports whether rawURL may be fetched
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, fmt.Errorf("parse URL: missing host in %q", rawURL)
	}

	data := r.robotsFor(ctx, parsed)
	if data == nil {
		return true, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent), nil
}

func (r *RobotsChecker) robotsFor(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Host)

	r.mu.RLock()
	entry, ok := r.hosts[host]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return entry.data
	}

	data, err := r.fetch(ctx, target.Scheme+"://"+target.Host+"/robots.txt")
	if err != nil {
		return nil
	}

	r.mu.Lock()
	r.hosts[host] = robotsEntry{data: data, fetchedAt: time.Now()}
	r.mu.Unlock()
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows everything, 5xx disallows everything
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}

// Clear drops every cached robots.txt
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = make(map[string]robotsEntry)
}

// NormalizeUserAgent reduces a User-Agent header to the product token used
// for robots.txt group matching
func NormalizeUserAgent(ua string) string {
	if i := strings.Index(ua, "compatible;"); i >= 0 {
		ua = strings.TrimSpace(ua[i+len("compatible;"):])
	}
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
