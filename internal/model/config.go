package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Enhancement EnhancementConfig `yaml:"enhancement" mapstructure:"enhancement"`
	Reputation  ReputationConfig  `yaml:"reputation" mapstructure:"reputation"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// CacheConfig describes one capped, expiring cache
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Capacity int           `yaml:"capacity" mapstructure:"capacity"` // evict when exceeded
	Retain   int           `yaml:"retain" mapstructure:"retain"`     // entries kept after eviction
}

// ProxyEndpoint is one CORS-style relay used by the proxy fetch method
type ProxyEndpoint struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Template string `yaml:"template" mapstructure:"template"` // {url} is replaced query-escaped, {raw} verbatim; otherwise appended escaped
	Format   string `yaml:"format" mapstructure:"format"`     // "raw" or "json" ({"contents": ...})
}

// FetchConfig configures the Fetch Queue and its methods
type FetchConfig struct {
	MaxConcurrent    int             `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinInterval      time.Duration   `yaml:"min_interval" mapstructure:"min_interval"`
	Cooldown         time.Duration   `yaml:"cooldown" mapstructure:"cooldown"`
	AttemptTimeout   time.Duration   `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
	MinContentLength int             `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxBodyBytes     int64           `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent        string          `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots    bool            `yaml:"respect_robots" mapstructure:"respect_robots"`
	Methods          []string        `yaml:"methods" mapstructure:"methods"` // order of proxy, relay, direct
	Proxies          []ProxyEndpoint `yaml:"proxies" mapstructure:"proxies"`
	RelayURL         string          `yaml:"relay_url,omitempty" mapstructure:"relay_url"`
	HTTPProxy        string          `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy       string          `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy          string          `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	Cache            CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// EnhancementConfig configures the Content Enhancer
type EnhancementConfig struct {
	Enabled          bool        `yaml:"enabled" mapstructure:"enabled"`
	MaxPosition      int         `yaml:"max_position" mapstructure:"max_position"`     // only top results escalate
	MaxConfidence    float64     `yaml:"max_confidence" mapstructure:"max_confidence"` // escalate while metadata confidence is at most this
	MinReputation    float64     `yaml:"min_reputation" mapstructure:"min_reputation"`
	FailureThreshold int         `yaml:"failure_threshold" mapstructure:"failure_threshold"` // consecutive failures before a domain is skipped
	MinContentLength int         `yaml:"min_content_length" mapstructure:"min_content_length"`
	Cache            CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// ReputationConfig configures the Domain Reputation Store
type ReputationConfig struct {
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	StaleAfter  time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
	Window      time.Duration `yaml:"window" mapstructure:"window"` // EOQ drift averaging window
	MaxSamples  int           `yaml:"max_samples" mapstructure:"max_samples"`
	DriftWeight float64       `yaml:"drift_weight" mapstructure:"drift_weight"`
}

// ScoringConfig configures the EOQ Calculator
type ScoringConfig struct {
	Cache         CacheConfig `yaml:"cache" mapstructure:"cache"`
	SummaryEvery  int         `yaml:"summary_every" mapstructure:"summary_every"` // log a failure summary every N failures
	MaxGroupShift float64     `yaml:"max_group_shift" mapstructure:"max_group_shift"`
}

// LLMConfig configures the remote scoring backend
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama or empty
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file, sqlite or memory
	Path    string `yaml:"path" mapstructure:"path"`       // directory for file, database file for sqlite
}

// BatchConfig configures batch scoring
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // 0 scores the whole batch at once
}

// ServerConfig configures `eoq serve`
type ServerConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr"`
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst     int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxBatch      int           `yaml:"max_batch" mapstructure:"max_batch"`
}

// LogConfig configures slog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			MaxConcurrent:    2,
			MinInterval:      time.Second,
			Cooldown:         100 * time.Millisecond,
			AttemptTimeout:   10 * time.Second,
			MinContentLength: 50,
			MaxBodyBytes:     2_000_000,
			UserAgent:        "Mozilla/5.0 (compatible; EOQ-Extension/1.0)",
			RespectRobots:    true,
			Methods:          []string{"proxy", "relay", "direct"},
			Proxies: []ProxyEndpoint{
				{Name: "allorigins", Template: "https://api.allorigins.win/get?url={url}", Format: "json"},
				{Name: "corsproxy", Template: "https://corsproxy.io/?{url}", Format: "raw"},
				{Name: "cors-anywhere", Template: "https://cors-anywhere.herokuapp.com/{raw}", Format: "raw"},
			},
			Cache: CacheConfig{TTL: 6 * time.Hour, Capacity: 100, Retain: 80},
		},
		Enhancement: EnhancementConfig{
			Enabled:          true,
			MaxPosition:      5,
			MaxConfidence:    0.8,
			MinReputation:    -0.5,
			FailureThreshold: 3,
			MinContentLength: 100,
			Cache:            CacheConfig{TTL: 24 * time.Hour, Capacity: 500, Retain: 400},
		},
		Reputation: ReputationConfig{
			CacheTTL:    7 * 24 * time.Hour,
			StaleAfter:  90 * 24 * time.Hour,
			Window:      30 * 24 * time.Hour,
			MaxSamples:  50,
			DriftWeight: 0.1,
		},
		Scoring: ScoringConfig{
			Cache:         CacheConfig{TTL: 24 * time.Hour, Capacity: 1000, Retain: 800},
			SummaryEvery:  10,
			MaxGroupShift: 0.4,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     30,
			MaxTokens:   250,
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "",
		},
		Batch: BatchConfig{Concurrency: 0},
		Server: ServerConfig{
			Addr:          ":8088",
			FlushInterval: 30 * time.Second,
			RateLimit:     10,
			RateBurst:     20,
			MaxBatch:      100,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}
