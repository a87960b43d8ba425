package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/util"
)

// Strategy is one way of retrieving a page
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, target string) (string, error)
}

// httpGetter performs a single bounded GET
type httpGetter struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	timeout   time.Duration
}

func newHTTPGetter(cfg model.FetchConfig, transport http.RoundTripper) httpGetter {
	return httpGetter{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		timeout:   cfg.AttemptTimeout,
	}
}

func (g httpGetter) get(ctx context.Context, rawURL string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	maxBytes := g.maxBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// ProxyStrategy fetches through public CORS-style relays, trying each endpoint in order
type ProxyStrategy struct {
	getter    httpGetter
	endpoints []model.ProxyEndpoint
}

// NewProxyStrategy creates the proxy method
func NewProxyStrategy(cfg model.FetchConfig) *ProxyStrategy {
	return &ProxyStrategy{
		getter:    newHTTPGetter(cfg, util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)),
		endpoints: cfg.Proxies,
	}
}

func (s *ProxyStrategy) Name() string { return "proxy" }

func (s *ProxyStrategy) Attempt(ctx context.Context, target string) (string, error) {
	if len(s.endpoints) == 0 {
		return "", errors.New("no proxy endpoints configured")
	}

	var errs []error
	for _, ep := range s.endpoints {
		content, err := s.attemptEndpoint(ctx, ep, target)
		if err == nil && strings.TrimSpace(content) != "" {
			return content, nil
		}
		if err == nil {
			err = errors.New("empty response")
		}
		errs = append(errs, fmt.Errorf("%s: %w", ep.Name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

func (s *ProxyStrategy) attemptEndpoint(ctx context.Context, ep model.ProxyEndpoint, target string) (string, error) {
	body, err := s.getter.get(ctx, ExpandTemplate(ep.Template, target))
	if err != nil {
		return "", err
	}

	if strings.EqualFold(ep.Format, "json") {
		var envelope struct {
			Contents string `json:"contents"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return "", fmt.Errorf("decode relay response: %w", err)
		}
		return envelope.Contents, nil
	}
	return string(body), nil
}

// ExpandTemplate substitutes the target URL into a relay template
func ExpandTemplate(tmpl, target string) string {
	switch {
	case strings.Contains(tmpl, "{url}"):
		return strings.ReplaceAll(tmpl, "{url}", url.QueryEscape(target))
	case strings.Contains(tmpl, "{raw}"):
		return strings.ReplaceAll(tmpl, "{raw}", target)
	default:
		return tmpl + url.QueryEscape(target)
	}
}

// RelayStrategy fetches through a privileged forward proxy that has network
// egress the caller lacks
type RelayStrategy struct {
	getter *httpGetter
}

// NewRelayStrategy creates the relay method. An empty relayURL yields a
// strategy that always fails with ErrRelayUnavailable.
func NewRelayStrategy(cfg model.FetchConfig) (*RelayStrategy, error) {
	if cfg.RelayURL == "" {
		return &RelayStrategy{}, nil
	}

	relay, err := url.Parse(cfg.RelayURL)
	if err != nil || relay.Host == "" {
		return nil, fmt.Errorf("invalid relay URL %q", cfg.RelayURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(relay)
	getter := newHTTPGetter(cfg, transport)
	return &RelayStrategy{getter: &getter}, nil
}

func (s *RelayStrategy) Name() string { return "relay" }

func (s *RelayStrategy) Attempt(ctx context.Context, target string) (string, error) {
	if s.getter == nil {
		return "", ErrRelayUnavailable
	}
	body, err := s.getter.get(ctx, target)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DirectStrategy fetches the page itself, honoring robots.txt when a checker is set
type DirectStrategy struct {
	getter httpGetter
	robots *util.RobotsChecker
}

// NewDirectStrategy creates the direct method
func NewDirectStrategy(cfg model.FetchConfig) *DirectStrategy {
	transport := util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	s := &DirectStrategy{getter: newHTTPGetter(cfg, transport)}
	if cfg.RespectRobots {
		s.robots = util.NewRobotsChecker(cfg.UserAgent, &http.Client{
			Transport: transport,
			Timeout:   cfg.AttemptTimeout,
		})
	}
	return s
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Attempt(ctx context.Context, target string) (string, error) {
	if s.robots != nil {
		allowed, err := s.robots.Allowed(ctx, target)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", ErrDisallowed
		}
	}

	body, err := s.getter.get(ctx, target)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// NewStrategies builds the fetch methods in the order given by cfg.Methods
func NewStrategies(cfg model.FetchConfig) ([]Strategy, error) {
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{"proxy", "relay", "direct"}
	}

	strategies := make([]Strategy, 0, len(methods))
	for _, m := range methods {
		switch strings.ToLower(m) {
		case "proxy":
			strategies = append(strategies, NewProxyStrategy(cfg))
		case "relay", "background":
			relay, err := NewRelayStrategy(cfg)
			if err != nil {
				return nil, err
			}
			strategies = append(strategies, relay)
		case "direct":
			strategies = append(strategies, NewDirectStrategy(cfg))
		default:
			return nil, fmt.Errorf("unknown fetch method: %s (supported: proxy, relay, direct)", m)
		}
	}
	return strategies, nil
}
