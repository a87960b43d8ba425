// Package reputation tracks a trust score in [-1, 1] for each bare domain,
// built from curated seeds, domain patterns, user interactions and a slow
// drift toward the EOQ scores observed for the domain.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

const (
	highThreshold = 0.3
	lowThreshold  = -0.3
)

// ErrScoreOutOfRange is returned for EOQ totals that are not finite or not in [0, 1]
var ErrScoreOutOfRange = errors.New("eoq score out of range")

func checkScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return fmt.Errorf("%w: %v", ErrScoreOutOfRange, score)
	}
	return nil
}

// Store is the domain reputation store. It is safe for concurrent use.
type Store struct {
	cfg     model.ReputationConfig
	backend storage.Store
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]model.ReputationEntry
	history map[string]*model.InteractionHistory
	stale   map[string]bool // domains whose score must be recomputed
}

// Option configures a Store
type Option func(*Store)

// WithStorage persists reputations and interaction histories
func WithStorage(s storage.Store) Option {
	return func(r *Store) { r.backend = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Store) { r.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Store) { r.now = now }
}

// New creates an empty reputation store
func New(cfg model.ReputationConfig, opts ...Option) *Store {
	s := &Store{
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]model.ReputationEntry),
		history: make(map[string]*model.InteractionHistory),
		stale:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reputation returns the score of a bare domain, recomputing it when the
// cached entry is older than the cache TTL
func (s *Store) Reputation(domain string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reputationLocked(domain).Score
}

// ReputationOf is Reputation for a URL
func (s *Store) ReputationOf(rawURL string) float64 {
	return s.Reputation(Domain(rawURL))
}

// Entry returns the cached entry for a domain without recomputing it
func (s *Store) Entry(domain string) (model.ReputationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[domain]
	return e, ok
}

func (s *Store) reputationLocked(domain string) model.ReputationEntry {
	now := s.now()
	e, ok := s.entries[domain]
	if ok && !s.stale[domain] && now.Sub(e.Timestamp) < s.cfg.CacheTTL {
		return e
	}
	delete(s.stale, domain)

	hist := s.history[domain]
	e = model.ReputationEntry{
		Score:            model.Clamp(baseScore(domain, hist)+e.Drift, -1, 1),
		Timestamp:        now,
		InteractionCount: interactionCount(hist),
		Drift:            e.Drift,
	}
	s.entries[domain] = e
	return e
}

// RecordInteraction adds one user signal for a domain. For time_spent the
// value is seconds; for eoq_score it is the observed total. Other kinds
// ignore value. Interaction signals invalidate the cached score.
func (s *Store) RecordInteraction(domain string, kind model.InteractionKind, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(domain, kind, value)
}

func (s *Store) recordLocked(domain string, kind model.InteractionKind, value float64) error {
	now := s.now()
	hist := s.history[domain]
	if hist == nil {
		hist = &model.InteractionHistory{}
	}

	switch kind {
	case model.InteractionClick:
		hist.Clicks++
		hist.LastVisit = now
	case model.InteractionTimeSpent:
		if value < 0 {
			return fmt.Errorf("negative time spent: %v", value)
		}
		hist.TimeSpentSeconds += value
	case model.InteractionReturn:
		hist.Returns++
		hist.LastVisit = now
	case model.InteractionEOQScore:
		if err := checkScore(value); err != nil {
			return err
		}
		hist.RecentEOQ = append(hist.RecentEOQ, model.ScoreSample{Score: value, Timestamp: now})
		if limit := s.cfg.MaxSamples; limit > 0 && len(hist.RecentEOQ) > limit {
			hist.RecentEOQ = hist.RecentEOQ[len(hist.RecentEOQ)-limit:]
		}
	default:
		return fmt.Errorf("unknown interaction kind: %s", kind)
	}

	hist.UpdatedAt = now
	s.history[domain] = hist

	if kind != model.InteractionEOQScore {
		s.stale[domain] = true
	}
	return nil
}

// UpdateFromEOQ records an EOQ total for a domain and drifts its reputation
// by DriftWeight times the distance of the recent average from 0.5.
// Scores outside [0, 1] are rejected with ErrScoreOutOfRange.
func (s *Store) UpdateFromEOQ(domain string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(domain, model.InteractionEOQScore, score); err != nil {
		return err
	}

	avg, ok := s.recentAverage(domain)
	if !ok {
		return nil
	}

	e := s.reputationLocked(domain)
	base := e.Score - e.Drift
	next := model.Clamp(e.Score+s.cfg.DriftWeight*(avg-0.5), -1, 1)

	e.Score = next
	e.Drift = next - base
	e.Timestamp = s.now()
	s.entries[domain] = e
	return nil
}

func (s *Store) recentAverage(domain string) (float64, bool) {
	hist := s.history[domain]
	if hist == nil {
		return 0, false
	}

	cutoff := s.now().Add(-s.cfg.Window)
	var sum float64
	var n int
	for _, sample := range hist.RecentEOQ {
		if s.cfg.Window > 0 && sample.Timestamp.Before(cutoff) {
			continue
		}
		sum += sample.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// History returns a copy of the interaction history for a domain
func (s *Store) History(domain string) (model.InteractionHistory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist, ok := s.history[domain]
	if !ok {
		return model.InteractionHistory{}, false
	}
	return copyHistory(hist), true
}

// Stats summarizes the cached reputations
func (s *Store) Stats() model.ReputationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.ReputationStats{
		TotalDomains:        len(s.entries),
		TrackedInteractions: len(s.history),
	}
	var sum float64
	for _, e := range s.entries {
		sum += e.Score
		switch {
		case e.Score > highThreshold:
			stats.HighReputation++
		case e.Score < lowThreshold:
			stats.LowReputation++
		default:
			stats.Neutral++
		}
	}
	if len(s.entries) > 0 {
		stats.AverageScore = sum / float64(len(s.entries))
	}
	return stats
}

// Export returns a copy of all reputations and histories
func (s *Store) Export() model.ReputationExport {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.ReputationExport{
		Reputations:  make(map[string]model.ReputationEntry, len(s.entries)),
		Interactions: make(map[string]model.InteractionHistory, len(s.history)),
		ExportedAt:   s.now(),
	}
	for d, e := range s.entries {
		out.Reputations[d] = e
	}
	for d, h := range s.history {
		out.Interactions[d] = copyHistory(h)
	}
	return out
}

// Import merges exported data. For each domain the record with the newer
// timestamp wins. It returns the number of records taken from data.
func (s *Store) Import(data model.ReputationExport) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for d, in := range data.Reputations {
		in.Score = model.Clamp(in.Score, -1, 1)
		if cur, ok := s.entries[d]; ok && !in.Timestamp.After(cur.Timestamp) {
			continue
		}
		s.entries[d] = in
		n++
	}
	for d, in := range data.Interactions {
		if cur, ok := s.history[d]; ok && !in.UpdatedAt.After(cur.UpdatedAt) {
			continue
		}
		h := copyHistory(&in)
		s.history[d] = &h
		n++
	}
	return n
}

// Load restores persisted state, dropping records older than StaleAfter
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	var entries map[string]model.ReputationEntry
	if _, err := storage.LoadJSON(ctx, s.backend, storage.BucketDomainReputation, &entries); err != nil {
		return err
	}
	var history map[string]*model.InteractionHistory
	if _, err := storage.LoadJSON(ctx, s.backend, storage.BucketDomainInteractions, &history); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for d, e := range entries {
		s.entries[d] = e
	}
	for d, h := range history {
		if h != nil {
			s.history[d] = h
		}
	}
	purged := s.purgeLocked()

	s.logger.Debug("reputation loaded", "domains", len(s.entries), "histories", len(s.history), "purged", purged)
	return nil
}

// Purge drops records older than StaleAfter and returns how many were removed
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked()
}

func (s *Store) purgeLocked() int {
	if s.cfg.StaleAfter <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.StaleAfter)

	n := 0
	for d, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			delete(s.entries, d)
			n++
		}
	}
	for d, h := range s.history {
		if h.UpdatedAt.Before(cutoff) {
			delete(s.history, d)
			n++
			continue
		}
		kept := h.RecentEOQ[:0]
		for _, sample := range h.RecentEOQ {
			if !sample.Timestamp.Before(cutoff) {
				kept = append(kept, sample)
			}
		}
		h.RecentEOQ = kept
	}
	return n
}

// Flush writes reputations and histories to storage
func (s *Store) Flush(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.mu.Lock()
	s.purgeLocked()
	entries := make(map[string]model.ReputationEntry, len(s.entries))
	for d, e := range s.entries {
		entries[d] = e
	}
	history := make(map[string]model.InteractionHistory, len(s.history))
	for d, h := range s.history {
		history[d] = copyHistory(h)
	}
	s.mu.Unlock()

	if err := storage.SaveJSON(ctx, s.backend, storage.BucketDomainReputation, entries); err != nil {
		return err
	}
	return storage.SaveJSON(ctx, s.backend, storage.BucketDomainInteractions, history)
}

// Clear drops all state in memory and in storage
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]model.ReputationEntry)
	s.history = make(map[string]*model.InteractionHistory)
	s.stale = make(map[string]bool)
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if err := s.backend.Remove(ctx, storage.BucketDomainReputation); err != nil {
		return err
	}
	return s.backend.Remove(ctx, storage.BucketDomainInteractions)
}

func interactionCount(h *model.InteractionHistory) int {
	if h == nil {
		return 0
	}
	return h.Clicks + h.Returns
}

func copyHistory(h *model.InteractionHistory) model.InteractionHistory {
	c := *h
	c.RecentEOQ = append([]model.ScoreSample(nil), h.RecentEOQ...)
	return c
}
