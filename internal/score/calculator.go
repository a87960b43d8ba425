// Package score computes EOQ scores. Results are scored by a remote model
// when one is configured, and by pattern heuristics otherwise or on failure.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/thedivinememe/eoq-search-reranker/internal/cache"
	"github.com/thedivinememe/eoq-search-reranker/internal/llm"
	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/reputation"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

const (
	promptMaxTokens   = 250
	promptTemperature = 0.2
)

// Enricher produces the enrichment record for a result
type Enricher interface {
	Enhance(ctx context.Context, r model.SearchResult) model.Enrichment
}

// ReputationUpdater receives the totals of successful remote scores
type ReputationUpdater interface {
	UpdateFromEOQ(domain string, score float64) error
}

// Calculator is the EOQ scorer. It is safe for concurrent use.
type Calculator struct {
	cfg        model.ScoringConfig
	backend    llm.Backend
	enricher   Enricher
	reputation ReputationUpdater
	heuristic  Heuristic
	scores     *cache.Persistent[model.EOQScore]
	store      storage.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	enhance  atomic.Bool
	failures failureTally
}

// Option configures a Calculator
type Option func(*Calculator)

// WithBackend sets the remote scoring backend. Nil means heuristic only.
func WithBackend(b llm.Backend) Option {
	return func(c *Calculator) { c.backend = b }
}

func WithEnricher(e Enricher) Option {
	return func(c *Calculator) { c.enricher = e }
}

func WithReputation(r ReputationUpdater) Option {
	return func(c *Calculator) { c.reputation = r }
}

func WithHeuristic(h Heuristic) Option {
	return func(c *Calculator) { c.heuristic = h }
}

// WithStorage persists the score cache
func WithStorage(s storage.Store) Option {
	return func(c *Calculator) { c.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// New creates a Calculator with content enhancement enabled
func New(cfg model.ScoringConfig, opts ...Option) *Calculator {
	c := &Calculator{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.heuristic == nil {
		c.heuristic = PatternHeuristic{MaxGroupShift: cfg.MaxGroupShift}
	}
	mem := cache.New[model.EOQScore](cfg.Cache, cache.WithClock(c.now))
	c.scores = cache.NewPersistent(mem, c.store, storage.BucketEOQCache)
	c.enhance.Store(true)
	return c
}

// SetContentEnhancement toggles the enrichment step for later calls
func (c *Calculator) SetContentEnhancement(enabled bool) {
	c.enhance.Store(enabled)
	c.logger.Info("content enhancement toggled", "enabled", enabled)
}

// ContentEnhancement reports whether enrichment runs before scoring
func (c *Calculator) ContentEnhancement() bool {
	return c.enhance.Load()
}

// Score returns the EOQ score of r. It never fails: remote errors fall back
// to the heuristic path and panics yield a neutral score.
func (c *Calculator) Score(ctx context.Context, r model.SearchResult) (out model.EOQScore) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("scoring failed", "url", r.URL, "panic", rec)
			out = model.NeutralScore(model.MethodError, fmt.Sprintf("scoring failed: %v", rec))
			out.Timestamp = c.now()
		}
		c.metrics.ScoreComputed(string(out.Method), time.Since(start).Seconds())
	}()

	r = r.Sanitized()
	key := cache.Key(r.Title, r.Snippet, r.URL)
	if cached, ok := c.scores.Get(key); ok {
		c.metrics.CacheLookup("eoq", true)
		return cached
	}
	c.metrics.CacheLookup("eoq", false)

	var enrichment *model.Enrichment
	if c.enricher != nil && c.enhance.Load() {
		e := c.enricher.Enhance(ctx, r)
		enrichment = &e
	}

	out = c.compute(ctx, r, enrichment)
	out.Timestamp = c.now()
	if ctx.Err() != nil {
		// a cancelled caller gets the degraded score but nothing is cached
		return out
	}
	c.scores.Set(key, out)
	return out
}

func (c *Calculator) compute(ctx context.Context, r model.SearchResult, enrichment *model.Enrichment) model.EOQScore {
	if !c.remoteReady() {
		return heuristicScore(c.heuristic.Components(r), enrichment)
	}

	s, err := c.remote(ctx, r, enrichment)
	if err != nil {
		if ctx.Err() == nil {
			c.recordFailure(err)
		}
		s = heuristicScore(c.heuristic.Components(r), enrichment)
		s.FallbackReason = err.Error()
		return s
	}

	if c.reputation != nil {
		if err := c.reputation.UpdateFromEOQ(reputation.Domain(r.URL), s.Total); err != nil {
			c.logger.Debug("reputation update skipped", "url", r.URL, "error", err)
		}
	}
	return s
}

func (c *Calculator) remoteReady() bool {
	return c.backend != nil && c.backend.Configured()
}

// remote runs the four prompts in order. A backend error aborts; a reply
// that does not parse degrades only its own axis.
func (c *Calculator) remote(ctx context.Context, r model.SearchResult, enrichment *model.Enrichment) (model.EOQScore, error) {
	var b model.Breakdown

	text, err := c.complete(ctx, render(empathyTemplate, r))
	if err != nil {
		return model.EOQScore{}, err
	}
	if b.Empathy, err = llm.ParseEmpathy(text); err != nil {
		c.logger.Debug("empathy reply degraded", "url", r.URL, "error", err)
	}

	axes := []*model.AxisReasoning{&b.Certainty, &b.Boundary, &b.Refinement}
	for i, p := range axisPrompts {
		text, err := c.complete(ctx, render(p.template, r))
		if err != nil {
			return model.EOQScore{}, err
		}
		if *axes[i], err = llm.ParseAxis(text); err != nil {
			c.logger.Debug("axis reply degraded", "axis", p.name, "url", r.URL, "error", err)
		}
	}

	comp := model.Components{
		Empathy:    b.Empathy.Combined(),
		Certainty:  b.Certainty.Score,
		Boundary:   b.Boundary.Score,
		Refinement: b.Refinement.Score,
	}
	if enrichment != nil {
		comp = comp.Apply(enrichment.Adjustments)
	} else {
		comp = comp.Clamp01()
	}

	return model.EOQScore{
		Total:       model.Clamp(comp.Total(), 0, 1),
		Components:  comp,
		Breakdown:   b,
		Enhancement: enrichment,
		Method:      model.MethodRemote,
		Provider:    c.backend.Name(),
	}, nil
}

func (c *Calculator) complete(ctx context.Context, user string) (string, error) {
	return c.backend.Complete(ctx, llm.Prompt{
		System:      systemPrompt,
		User:        user,
		MaxTokens:   promptMaxTokens,
		Temperature: promptTemperature,
	})
}

func (c *Calculator) recordFailure(err error) {
	kind := llm.Classify(err)
	stats := c.failures.record(kind)
	c.metrics.BackendFailure(string(kind))

	attrs := []any{"kind", kind, "error", err}
	if hint, ok := failureHints[kind]; ok {
		attrs = append(attrs, "hint", hint)
	}
	c.logger.Warn("remote scoring failed, using heuristic", attrs...)

	if every := c.cfg.SummaryEvery; every > 0 && stats.Total%every == 0 {
		c.logger.Info("backend failure summary",
			"total", stats.Total,
			"rate_limits", stats.RateLimits,
			"auth_errors", stats.AuthErrors,
			"network_errors", stats.NetworkErrors,
			"parse_errors", stats.ParseErrors,
			"other_errors", stats.OtherErrors,
		)
	}
}

// FailureStats returns the remote failure tally
func (c *Calculator) FailureStats() model.FailureStats {
	return c.failures.snapshot()
}

// Load restores the persisted score cache
func (c *Calculator) Load(ctx context.Context) error {
	n, err := c.scores.Load(ctx)
	if err != nil {
		return fmt.Errorf("load score cache: %w", err)
	}
	c.logger.Debug("score cache loaded", "entries", n)
	return nil
}

// Flush persists the score cache
func (c *Calculator) Flush(ctx context.Context) error {
	if err := c.scores.Flush(ctx); err != nil {
		return fmt.Errorf("flush score cache: %w", err)
	}
	return nil
}

// ClearCache drops every cached score in memory and storage
func (c *Calculator) ClearCache(ctx context.Context) error {
	return c.scores.ClearAll(ctx)
}

func (c *Calculator) CacheStats() cache.Stats {
	return c.scores.Stats()
}
