// Package enhance produces per-axis score adjustments for a search result
// from its metadata and, for top results, from the fetched page content.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/thedivinememe/eoq-search-reranker/internal/cache"
	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/reputation"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

// Fetcher retrieves the extracted text of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ReputationSource looks up the reputation of a bare domain
type ReputationSource interface {
	Reputation(domain string) float64
}

const (
	metadataConfidence = 0.3
	metadataWeight     = 0.3
	contentWeight      = 0.7
)

var errInsufficientContent = errors.New("insufficient content retrieved")

// Enhancer runs the two enrichment phases. It is safe for concurrent use.
type Enhancer struct {
	cfg        model.EnhancementConfig
	fetcher    Fetcher
	reputation ReputationSource
	classifier Classifier
	urlScorer  URLScorer
	analyzer   ContentAnalyzer
	analyses   *cache.Persistent[model.Enrichment]
	backend    storage.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.Mutex
	failures map[string]int // consecutive failures per domain
	failed   map[string]bool
}

// Option configures an Enhancer
type Option func(*Enhancer)

func WithClassifier(c Classifier) Option {
	return func(e *Enhancer) { e.classifier = c }
}

func WithURLScorer(s URLScorer) Option {
	return func(e *Enhancer) { e.urlScorer = s }
}

func WithAnalyzer(a ContentAnalyzer) Option {
	return func(e *Enhancer) { e.analyzer = a }
}

// WithStorage persists the analysis cache and the failed-domain set
func WithStorage(s storage.Store) Option {
	return func(e *Enhancer) { e.backend = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Enhancer) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enhancer) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Enhancer) { e.now = now }
}

// New creates an Enhancer. A nil fetcher disables phase 2.
func New(cfg model.EnhancementConfig, fetcher Fetcher, rep ReputationSource, opts ...Option) *Enhancer {
	e := &Enhancer{
		cfg:        cfg,
		fetcher:    fetcher,
		reputation: rep,
		classifier: KeywordClassifier{},
		urlScorer:  PatternURLScorer{},
		analyzer:   KeywordAnalyzer{},
		logger:     slog.Default(),
		now:        time.Now,
		failures:   make(map[string]int),
		failed:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	store := cache.New[model.Enrichment](cfg.Cache, cache.WithClock(e.now))
	e.analyses = cache.NewPersistent(store, e.backend, storage.BucketEnhancementCache)
	return e
}

// Enhance returns the enrichment record for r. It never fails: panics and
// errors collapse into the default record.
func (e *Enhancer) Enhance(ctx context.Context, r model.SearchResult) (out model.Enrichment) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("content enhancement failed", "url", r.URL, "panic", rec)
			out = model.NeutralEnrichment(model.EnrichDefault, "Enhancement failed", e.now())
		}
		e.metrics.Enrichment(string(out.Method))
	}()

	meta := e.Metadata(r)

	if cached, ok := e.analyses.Get(analysisKey(r.URL)); ok {
		e.metrics.CacheLookup("enhancement", true)
		return Combine(meta, cached)
	}

	if !e.ShouldFetch(r, meta) {
		return meta
	}
	e.metrics.CacheLookup("enhancement", false)

	content := e.fetchAndAnalyze(ctx, r)
	if content.Method != model.EnrichFullContent {
		// blend against an empty content phase, keeping the failure method
		content.Adjustments = meta.Adjustments.Scale(metadataWeight).Clamp(model.MaxEnrichAdjustment)
		content.ContentType = meta.ContentType
		content.DomainReputation = meta.DomainReputation
		content.URLPatternScore = meta.URLPatternScore
		content.QualitySignals = meta.QualitySignals
		return content
	}
	return Combine(meta, content)
}

// Metadata runs phase 1 only
func (e *Enhancer) Metadata(r model.SearchResult) model.Enrichment {
	rep := 0.0
	if e.reputation != nil {
		rep = e.reputation.Reputation(reputation.Domain(r.URL))
	}
	urlScore := e.urlScorer.Score(r.URL)
	ct := e.classifier.Classify(r)
	signals := QualitySignals(r)

	return model.Enrichment{
		Adjustments:      metadataAdjustments(rep, urlScore, ct, len(signals)),
		Confidence:       metadataConfidence,
		Method:           model.EnrichMetadata,
		ContentType:      ct,
		DomainReputation: rep,
		URLPatternScore:  urlScore,
		QualitySignals:   signals,
		Timestamp:        e.now(),
	}
}

// ShouldFetch reports whether r qualifies for a full-content fetch
func (e *Enhancer) ShouldFetch(r model.SearchResult, meta model.Enrichment) bool {
	switch {
	case e.fetcher == nil:
		return false
	case r.OriginalPosition > e.cfg.MaxPosition:
		return false
	case meta.Confidence > e.cfg.MaxConfidence:
		return false
	case meta.DomainReputation < e.cfg.MinReputation:
		return false
	case meta.ContentType == model.ContentCommercial:
		return false
	}
	_, cached := e.analyses.Get(analysisKey(r.URL))
	return !cached
}

func (e *Enhancer) fetchAndAnalyze(ctx context.Context, r model.SearchResult) model.Enrichment {
	domain := reputation.Domain(r.URL)
	if e.IsFailed(domain) {
		return model.NeutralEnrichment(model.EnrichDomainBlacklisted, "Domain consistently fails", e.now())
	}

	text, err := e.fetcher.Fetch(ctx, r.URL)
	if err == nil && utf8.RuneCountInString(strings.TrimSpace(text)) < e.cfg.MinContentLength {
		err = errInsufficientContent
	}
	if err != nil {
		// a cancelled caller says nothing about the domain
		if ctx.Err() == nil {
			e.recordFailure(domain)
		}
		e.logger.Debug("content fetch failed", "url", r.URL, "error", err)
		return model.NeutralEnrichment(model.EnrichFetchFailed, err.Error(), e.now())
	}
	e.recordSuccess(domain)

	analysis := e.analyzer.Analyze(text)
	analysis.Timestamp = e.now()
	e.analyses.Set(analysisKey(r.URL), analysis)
	return analysis
}

// Combine blends metadata and content adjustments 0.3/0.7, clamped to ±0.4
func Combine(meta, content model.Enrichment) model.Enrichment {
	out := meta
	out.Adjustments = meta.Adjustments.Scale(metadataWeight).
		Add(content.Adjustments.Scale(contentWeight)).
		Clamp(model.MaxEnrichAdjustment)
	out.Confidence = max(meta.Confidence, content.Confidence)
	out.Method = model.EnrichHybrid
	out.WordCount = content.WordCount
	out.ReadingMinutes = content.ReadingMinutes
	return out
}

func (e *Enhancer) recordFailure(domain string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures[domain]++
	if e.failures[domain] >= e.cfg.FailureThreshold && !e.failed[domain] {
		e.failed[domain] = true
		e.logger.Info("domain added to failed set", "domain", domain, "failures", e.failures[domain])
	}
}

func (e *Enhancer) recordSuccess(domain string) {
	e.mu.Lock()
	delete(e.failures, domain)
	e.mu.Unlock()
}

// IsFailed reports whether a domain is in the failed set
func (e *Enhancer) IsFailed(domain string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed[domain]
}

// FailedDomains returns the failed set, sorted
func (e *Enhancer) FailedDomains() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.failed))
	for d := range e.failed {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Load restores the analysis cache and the failed-domain set
func (e *Enhancer) Load(ctx context.Context) error {
	if _, err := e.analyses.Load(ctx); err != nil {
		return err
	}
	if e.backend == nil {
		return nil
	}

	var failed []string
	if _, err := storage.LoadJSON(ctx, e.backend, storage.BucketFailedDomains, &failed); err != nil {
		return err
	}

	e.mu.Lock()
	for _, d := range failed {
		e.failed[d] = true
	}
	e.mu.Unlock()
	return nil
}

// Flush writes the analysis cache and the failed-domain set
func (e *Enhancer) Flush(ctx context.Context) error {
	if err := e.analyses.Flush(ctx); err != nil {
		return err
	}
	if e.backend == nil {
		return nil
	}
	return storage.SaveJSON(ctx, e.backend, storage.BucketFailedDomains, e.FailedDomains())
}

// ClearCache drops cached analyses and forgets failed domains
func (e *Enhancer) ClearCache(ctx context.Context) error {
	e.mu.Lock()
	e.failures = make(map[string]int)
	e.failed = make(map[string]bool)
	e.mu.Unlock()

	if err := e.analyses.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear enhancement cache: %w", err)
	}
	if e.backend == nil {
		return nil
	}
	return e.backend.Remove(ctx, storage.BucketFailedDomains)
}

// CacheStats reports analysis cache usage
func (e *Enhancer) CacheStats() cache.Stats {
	return e.analyses.Stats()
}

func analysisKey(url string) string {
	return cache.Key("enhance", url)
}
