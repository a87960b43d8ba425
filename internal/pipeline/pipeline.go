// Package pipeline wires storage, the fetch queue, extraction, reputation,
// enhancement and scoring into one object with an explicit load/flush
// lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thedivinememe/eoq-search-reranker/internal/cache"
	"github.com/thedivinememe/eoq-search-reranker/internal/enhance"
	"github.com/thedivinememe/eoq-search-reranker/internal/extract"
	"github.com/thedivinememe/eoq-search-reranker/internal/fetch"
	"github.com/thedivinememe/eoq-search-reranker/internal/llm"
	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/reputation"
	"github.com/thedivinememe/eoq-search-reranker/internal/score"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
	"github.com/thedivinememe/eoq-search-reranker/internal/worker"
)

const topScores = 3

// Pipeline is the scoring service. It is safe for concurrent use.
type Pipeline struct {
	cfg        *model.Config
	store      storage.Store
	ownsStore  bool
	queue      *fetch.Queue
	reputation *reputation.Store
	enhancer   *enhance.Enhancer
	calculator *score.Calculator
	batch      *worker.BatchProcessor
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.Mutex
	session model.SessionStats
}

// Option configures a Pipeline
type Option func(*options)

type options struct {
	store      storage.Store
	backend    llm.Backend
	backendSet bool
	strategies []fetch.Strategy
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// WithStorage uses s instead of opening cfg.Storage. The caller keeps ownership.
func WithStorage(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

// WithBackend overrides the backend built from cfg.LLM. Nil forces heuristic scoring.
func WithBackend(b llm.Backend) Option {
	return func(o *options) {
		o.backend = b
		o.backendSet = true
	}
}

// WithStrategies replaces the fetch methods built from cfg.Fetch
func WithStrategies(s ...fetch.Strategy) Option {
	return func(o *options) { o.strategies = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a pipeline. Persisted state is not read until Load.
func New(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	p := &Pipeline{cfg: cfg, metrics: o.metrics, logger: o.logger}

	p.store = o.store
	if p.store == nil {
		s, err := storage.Open(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		p.store = s
		p.ownsStore = true
	}

	queueOpts := []fetch.Option{
		fetch.WithProcessor(extract.New(o.logger)),
		fetch.WithStorage(p.store),
		fetch.WithLogger(o.logger),
		fetch.WithMetrics(o.metrics),
		fetch.WithClock(o.now),
	}
	if o.strategies != nil {
		queueOpts = append(queueOpts, fetch.WithStrategies(o.strategies...))
	}
	queue, err := fetch.NewQueue(cfg.Fetch, queueOpts...)
	if err != nil {
		_ = p.closeStore()
		return nil, fmt.Errorf("create fetch queue: %w", err)
	}
	p.queue = queue

	p.reputation = reputation.New(cfg.Reputation,
		reputation.WithStorage(p.store),
		reputation.WithLogger(o.logger),
		reputation.WithClock(o.now),
	)

	p.enhancer = enhance.New(cfg.Enhancement, queue, p.reputation,
		enhance.WithStorage(p.store),
		enhance.WithLogger(o.logger),
		enhance.WithMetrics(o.metrics),
		enhance.WithClock(o.now),
	)

	backend := o.backend
	if !o.backendSet {
		backend, err = llm.NewBackend(llm.ConfigFromModel(cfg.LLM, cfg.Fetch))
		if err != nil {
			o.logger.Warn("scoring backend unavailable, using heuristics", "provider", cfg.LLM.Provider, "error", err)
			backend = nil
		}
	}
	if backend != nil && !backend.Configured() {
		o.logger.Warn("scoring backend credential missing or malformed, using heuristics", "provider", backend.Name())
	}

	p.calculator = score.New(cfg.Scoring,
		score.WithBackend(backend),
		score.WithEnricher(p.enhancer),
		score.WithReputation(p.reputation),
		score.WithStorage(p.store),
		score.WithLogger(o.logger),
		score.WithMetrics(o.metrics),
		score.WithClock(o.now),
	)
	if !cfg.Enhancement.Enabled {
		p.calculator.SetContentEnhancement(false)
	}

	p.batch = worker.NewBatchProcessor(p.calculator, cfg.Batch.Concurrency)
	return p, nil
}

// Load restores every persisted cache. Failures are logged and joined; the
// pipeline stays usable with whatever loaded.
func (p *Pipeline) Load(ctx context.Context) error {
	return p.each(ctx, "load", []func(context.Context) error{
		p.queue.Load,
		p.reputation.Load,
		p.enhancer.Load,
		p.calculator.Load,
	})
}

// Flush persists every cache
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.each(ctx, "flush", []func(context.Context) error{
		p.queue.Flush,
		p.reputation.Flush,
		p.enhancer.Flush,
		p.calculator.Flush,
	})
}

func (p *Pipeline) each(ctx context.Context, op string, steps []func(context.Context) error) error {
	var errs []error
	for _, step := range steps {
		if err := step(ctx); err != nil {
			p.logger.Warn("persistence "+op+" failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run flushes every server.flush_interval until ctx is done, then flushes once more
func (p *Pipeline) Run(ctx context.Context) error {
	interval := p.cfg.Server.FlushInterval
	if interval <= 0 {
		<-ctx.Done()
		return p.Flush(context.WithoutCancel(ctx))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.Flush(context.WithoutCancel(ctx))
		case <-ticker.C:
			_ = p.Flush(ctx)
		}
	}
}

// Close releases storage opened by New
func (p *Pipeline) Close() error {
	return p.closeStore()
}

func (p *Pipeline) closeStore() error {
	if !p.ownsStore || p.store == nil {
		return nil
	}
	return p.store.Close()
}

// ScoreResult scores one result
func (p *Pipeline) ScoreResult(ctx context.Context, r model.SearchResult) model.EOQScore {
	s := p.calculator.Score(ctx, r)
	p.mu.Lock()
	p.session.TotalScoresCalculated++
	p.mu.Unlock()
	return s
}

// ScoreBatch scores results concurrently, returned in submission order
func (p *Pipeline) ScoreBatch(ctx context.Context, results []model.SearchResult) []model.ScoredResult {
	scored := p.batch.ProcessResults(ctx, results)
	p.mu.Lock()
	p.session.TotalScoresCalculated += len(scored)
	p.mu.Unlock()
	return scored
}

// RerankResult is a scored batch ordered by EOQ total
type RerankResult struct {
	BatchID string                `json:"batch_id"`
	Results []model.ScoredResult  `json:"results"`
	Stats   model.ReorderingStats `json:"stats"`
}

// Rerank scores a batch and orders it by total, highest first. Ties keep
// submission order.
func (p *Pipeline) Rerank(ctx context.Context, results []model.SearchResult) RerankResult {
	scored := p.ScoreBatch(ctx, results)

	sorted := make([]model.ScoredResult, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score.Total > sorted[j].Score.Total
	})

	if len(scored) > 0 {
		var sum float64
		for _, s := range scored {
			sum += s.Score.Total
		}
		p.recordSearch(sum / float64(len(scored)) * 100)
	}

	return RerankResult{
		BatchID: uuid.NewString(),
		Results: sorted,
		Stats:   ReorderingStats(sorted),
	}
}

// ReorderingStats summarizes how far each result moved from its original position
func ReorderingStats(sorted []model.ScoredResult) model.ReorderingStats {
	stats := model.ReorderingStats{TopScores: []model.TopScore{}}
	if len(sorted) == 0 {
		return stats
	}

	totalChange := 0
	for i, s := range sorted {
		change := s.Result.OriginalPosition - (i + 1)
		if change < 0 {
			change = -change
		}
		if change > 0 {
			stats.TotalMoved++
			totalChange += change
		}
	}
	if stats.TotalMoved > 0 {
		stats.AverageChange = float64(totalChange) / float64(stats.TotalMoved)
	}

	for _, s := range sorted[:min(topScores, len(sorted))] {
		stats.TopScores = append(stats.TopScores, model.TopScore{
			Title:            s.Result.Title,
			Score:            s.Score.Total,
			OriginalPosition: s.Result.OriginalPosition,
		})
	}
	return stats
}

func (p *Pipeline) recordSearch(improvement float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session.SearchesEnhanced++
	n := float64(p.session.SearchesEnhanced)
	p.session.AverageImprovement = (p.session.AverageImprovement*(n-1) + improvement) / n
}

// SessionStats returns the running counters since New
func (p *Pipeline) SessionStats() model.SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// FailureStats returns the remote backend failure tally
func (p *Pipeline) FailureStats() model.FailureStats {
	return p.calculator.FailureStats()
}

// SetContentEnhancement toggles enrichment for later scores
func (p *Pipeline) SetContentEnhancement(enabled bool) {
	p.calculator.SetContentEnhancement(enabled)
}

func (p *Pipeline) ContentEnhancement() bool {
	return p.calculator.ContentEnhancement()
}

// RecordInteraction records a user signal. target may be a URL or a bare domain.
func (p *Pipeline) RecordInteraction(target string, kind model.InteractionKind, value float64) error {
	domain := reputation.Domain(target)
	if domain == "unknown" {
		return fmt.Errorf("no domain in %q", target)
	}
	if kind == model.InteractionEOQScore {
		return p.reputation.UpdateFromEOQ(domain, value)
	}
	return p.reputation.RecordInteraction(domain, kind, value)
}

// DomainReputation is the reputation view of one domain
type DomainReputation struct {
	Domain  string                    `json:"domain"`
	Score   float64                   `json:"score"`
	Entry   model.ReputationEntry     `json:"entry"`
	History *model.InteractionHistory `json:"history,omitempty"`
	Failed  bool                      `json:"failed"`
}

// Reputation looks up a URL or bare domain
func (p *Pipeline) Reputation(target string) DomainReputation {
	domain := reputation.Domain(target)
	out := DomainReputation{
		Domain: domain,
		Score:  p.reputation.Reputation(domain),
		Failed: p.enhancer.IsFailed(domain),
	}
	out.Entry, _ = p.reputation.Entry(domain)
	if h, ok := p.reputation.History(domain); ok {
		out.History = &h
	}
	return out
}

func (p *Pipeline) ReputationStats() model.ReputationStats {
	return p.reputation.Stats()
}

func (p *Pipeline) ExportReputation() model.ReputationExport {
	return p.reputation.Export()
}

// ImportReputation merges exported data and returns how many records were taken
func (p *Pipeline) ImportReputation(data model.ReputationExport) int {
	return p.reputation.Import(data)
}

// ClearCaches drops the score, fetch and enhancement caches and the failed-domain set
func (p *Pipeline) ClearCaches(ctx context.Context) error {
	return errors.Join(
		p.calculator.ClearCache(ctx),
		p.queue.ClearCache(ctx),
		p.enhancer.ClearCache(ctx),
	)
}

// Snapshot is a combined view of pipeline state
type Snapshot struct {
	Session            model.SessionStats    `json:"session"`
	Failures           model.FailureStats    `json:"failures"`
	Recommendations    []string              `json:"recommendations,omitempty"`
	Reputation         model.ReputationStats `json:"reputation"`
	Queue              fetch.Stats           `json:"queue"`
	ScoreCache         cache.Stats           `json:"score_cache"`
	EnhancementCache   cache.Stats           `json:"enhancement_cache"`
	FailedDomains      []string              `json:"failed_domains"`
	ContentEnhancement bool                  `json:"content_enhancement"`
}

// Stats returns a snapshot of every counter
func (p *Pipeline) Stats() Snapshot {
	failures := p.FailureStats()
	return Snapshot{
		Session:            p.SessionStats(),
		Failures:           failures,
		Recommendations:    score.Recommendations(failures),
		Reputation:         p.ReputationStats(),
		Queue:              p.queue.Stats(),
		ScoreCache:         p.calculator.CacheStats(),
		EnhancementCache:   p.enhancer.CacheStats(),
		FailedDomains:      p.enhancer.FailedDomains(),
		ContentEnhancement: p.ContentEnhancement(),
	}
}
