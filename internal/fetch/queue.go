package fetch

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thedivinememe/eoq-search-reranker/internal/cache"
	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

// Processor turns a raw page into the text that is cached and returned.
// target is the requested URL, for site-specific handling.
type Processor interface {
	Process(target, raw string) string
}

// Stats is a snapshot of queue state
type Stats struct {
	CacheSize  int         `json:"cache_size"`
	Active     int         `json:"active"`
	Pending    int         `json:"pending"`
	PeakActive int         `json:"peak_active"`
	Cache      cache.Stats `json:"cache"`
}

// Queue serializes page fetches: FIFO order, a bounded number in flight,
// a global minimum spacing between request starts and a short cooldown
// before the next dispatch.
type Queue struct {
	cfg        model.FetchConfig
	strategies []Strategy
	processor  Processor
	cache      *cache.Persistent[string]
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	pending *list.List
	active  int
	peak    int
}

type request struct {
	ctx        context.Context
	url        string
	done       chan fetchResult
	elem       *list.Element
	dispatched bool
}

type fetchResult struct {
	content string
	err     error
}

// Option configures a Queue
type Option func(*queueOptions)

type queueOptions struct {
	strategies []Strategy
	processor  Processor
	backend    storage.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// WithStrategies replaces the methods built from the config
func WithStrategies(s ...Strategy) Option {
	return func(o *queueOptions) { o.strategies = s }
}

// WithProcessor sets the raw page processor, usually the content extractor
func WithProcessor(p Processor) Option {
	return func(o *queueOptions) { o.processor = p }
}

// WithStorage persists the fetch cache
func WithStorage(s storage.Store) Option {
	return func(o *queueOptions) { o.backend = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *queueOptions) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *queueOptions) { o.metrics = m }
}

// WithClock overrides the cache clock
func WithClock(now func() time.Time) Option {
	return func(o *queueOptions) { o.now = now }
}

// NewQueue creates a fetch queue
func NewQueue(cfg model.FetchConfig, opts ...Option) (*Queue, error) {
	o := queueOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	strategies := o.strategies
	if strategies == nil {
		var err error
		strategies, err = NewStrategies(cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	store := cache.New[string](cfg.Cache, cache.WithClock(o.now))

	return &Queue{
		cfg:        cfg,
		strategies: strategies,
		processor:  o.processor,
		cache:      cache.NewPersistent(store, o.backend, storage.BucketFetchCache),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     o.logger,
		metrics:    o.metrics,
		pending:    list.New(),
	}, nil
}

// Fetch returns the processed content of target. Cached content is
// returned without queueing. When every method fails the error is a *FetchError.
func (q *Queue) Fetch(ctx context.Context, target string) (string, error) {
	if content, ok := q.cache.Get(target); ok {
		q.metrics.CacheLookup("fetch", true)
		return content, nil
	}
	q.metrics.CacheLookup("fetch", false)

	req := &request{ctx: ctx, url: target, done: make(chan fetchResult, 1)}

	q.mu.Lock()
	req.elem = q.pending.PushBack(req)
	q.mu.Unlock()

	q.schedule()

	select {
	case res := <-req.done:
		return res.content, res.err
	case <-ctx.Done():
		q.mu.Lock()
		if !req.dispatched {
			q.pending.Remove(req.elem)
		}
		q.mu.Unlock()
		return "", ctx.Err()
	}
}

// schedule dispatches pending requests while slots are free
func (q *Queue) schedule() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.active < q.cfg.MaxConcurrent && q.pending.Len() > 0 {
		req := q.pending.Remove(q.pending.Front()).(*request)
		req.dispatched = true
		if req.ctx.Err() != nil {
			continue
		}

		q.active++
		if q.active > q.peak {
			q.peak = q.active
		}
		go q.run(req)
	}

	q.metrics.QueueDepth(q.active, q.pending.Len())
}

func (q *Queue) run(req *request) {
	defer q.release()

	if err := q.limiter.Wait(req.ctx); err != nil {
		req.done <- fetchResult{err: err}
		return
	}

	content, err := q.fetchNow(req.ctx, req.url)
	req.done <- fetchResult{content: content, err: err}
}

func (q *Queue) release() {
	q.mu.Lock()
	q.active--
	q.mu.Unlock()

	if q.cfg.Cooldown > 0 {
		time.AfterFunc(q.cfg.Cooldown, q.schedule)
		return
	}
	q.schedule()
}

// fetchNow tries each method in order; the first with enough content wins
func (q *Queue) fetchNow(ctx context.Context, target string) (string, error) {
	// a duplicate may have been queued behind a request for the same URL
	if content, ok := q.cache.Get(target); ok {
		return content, nil
	}

	var attempts []AttemptError
	for _, s := range q.strategies {
		raw, err := s.Attempt(ctx, target)
		if err == nil && len(raw) <= q.cfg.MinContentLength {
			err = fmt.Errorf("%w: %d chars", ErrContentTooShort, len(raw))
		}
		if err != nil {
			q.metrics.FetchAttempt(s.Name(), "error")
			q.logger.Debug("fetch method failed", "method", s.Name(), "url", target, "error", err)
			attempts = append(attempts, AttemptError{Method: s.Name(), Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		q.metrics.FetchAttempt(s.Name(), "ok")
		content := raw
		if q.processor != nil {
			content = q.processor.Process(target, raw)
		}
		q.cache.Set(target, content)
		return content, nil
	}

	return "", &FetchError{URL: target, Attempts: attempts}
}

// Stats returns the current queue and cache state
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		CacheSize:  q.cache.Len(),
		Active:     q.active,
		Pending:    q.pending.Len(),
		PeakActive: q.peak,
		Cache:      q.cache.Stats(),
	}
}

// ClearCache drops cached content in memory and in storage
func (q *Queue) ClearCache(ctx context.Context) error {
	return q.cache.ClearAll(ctx)
}

// Load restores the fetch cache from storage
func (q *Queue) Load(ctx context.Context) error {
	n, err := q.cache.Load(ctx)
	if err != nil {
		return err
	}
	q.logger.Debug("fetch cache loaded", "entries", n)
	return nil
}

// Flush writes the fetch cache to storage
func (q *Queue) Flush(ctx context.Context) error {
	return q.cache.Flush(ctx)
}
