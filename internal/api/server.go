// Package api serves the pipeline operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thedivinememe/eoq-search-reranker/internal/metrics"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
	"github.com/thedivinememe/eoq-search-reranker/internal/worker"
)

const maxBodyBytes = 1 << 20

// Service is the subset of the pipeline the API exposes
type Service interface {
	ScoreResult(ctx context.Context, r model.SearchResult) model.EOQScore
	Rerank(ctx context.Context, results []model.SearchResult) pipeline.RerankResult
	FailureStats() model.FailureStats
	SessionStats() model.SessionStats
	ReputationStats() model.ReputationStats
	Reputation(target string) pipeline.DomainReputation
	RecordInteraction(target string, kind model.InteractionKind, value float64) error
	SetContentEnhancement(enabled bool)
	ContentEnhancement() bool
	Stats() pipeline.Snapshot
}

// Server routes requests to a Service
type Server struct {
	cfg     model.ServerConfig
	svc     Service
	limiter *worker.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	router  chi.Router
}

// Option configures a Server
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics exposes m on /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the router
func New(cfg model.ServerConfig, svc Service, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: worker.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxBatch <= 0 {
		s.cfg.MaxBatch = model.DefaultConfig().Server.MaxBatch
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/score", s.handleScore)
		r.Post("/rerank", s.handleRerank)
		r.Post("/interactions", s.handleInteraction)
		r.Put("/settings/enhancement", s.handleEnhancement)
		r.Get("/reputation/{domain}", s.handleReputation)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.handleStats)
			r.Get("/failures", s.handleFailures)
			r.Get("/session", s.handleSession)
			r.Get("/reputation", s.handleReputationStats)
		})
	})

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute, // batch reranks fetch pages
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// rateLimit applies a token bucket per client address
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
