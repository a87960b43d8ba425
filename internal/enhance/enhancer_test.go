package enhance

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

type stubFetcher struct {
	content string
	err     error
	calls   atomic.Int32

	mu   sync.Mutex
	urls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.content, f.err
}

type stubReputation map[string]float64

func (s stubReputation) Reputation(domain string) float64 { return s[domain] }

var articleText = strings.Repeat("People learn together and may develop knowledge. ", 20)

func testConfig() model.EnhancementConfig {
	return model.DefaultConfig().Enhancement
}

func result(pos int, url string) model.SearchResult {
	return model.SearchResult{
		Title:            "A thorough look at urban gardens",
		Snippet:          "Local volunteers describe how shared plots changed their neighbourhood over time.",
		URL:              url,
		OriginalPosition: pos,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEnhance_PositionSixNeverFetches(t *testing.T) {
	f := &stubFetcher{content: articleText}
	e := New(testConfig(), f, stubReputation{})

	got := e.Enhance(context.Background(), result(6, "https://example.com/gardens"))
	if f.calls.Load() != 0 {
		t.Errorf("expected no fetch for position 6, got %d", f.calls.Load())
	}
	if got.Method != model.EnrichMetadata || got.Confidence != 0.3 {
		t.Errorf("expected metadata record, got %s/%v", got.Method, got.Confidence)
	}
}

func TestEnhance_PositionOneFetches(t *testing.T) {
	f := &stubFetcher{content: articleText}
	e := New(testConfig(), f, stubReputation{})

	r := result(1, "https://example.com/gardens")
	meta := e.Metadata(r)
	if meta.Confidence != 0.3 || meta.DomainReputation != 0 {
		t.Fatalf("unexpected phase 1 record: %+v", meta)
	}
	if !e.ShouldFetch(r, meta) {
		t.Fatal("expected escalation for position 1")
	}

	got := e.Enhance(context.Background(), r)
	if f.calls.Load() != 1 {
		t.Errorf("expected one fetch, got %d", f.calls.Load())
	}
	if got.Method != model.EnrichHybrid {
		t.Errorf("expected hybrid, got %s", got.Method)
	}
	if got.Confidence != 0.7 {
		t.Errorf("expected max confidence 0.7, got %v", got.Confidence)
	}
	if got.WordCount != 140 || got.ReadingMinutes != 1 {
		t.Errorf("expected content metrics carried over, got %d words / %d min", got.WordCount, got.ReadingMinutes)
	}
}

func TestEnhance_EscalationGates(t *testing.T) {
	tests := []struct {
		name string
		r    model.SearchResult
		rep  stubReputation
	}{
		{"low reputation", result(1, "https://spammy.com/x"), stubReputation{"spammy.com": -0.6}},
		{"commercial", model.SearchResult{Title: "Best price on shoes", Snippet: "Only $20", URL: "https://example.com/p", OriginalPosition: 1}, stubReputation{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{content: articleText}
			e := New(testConfig(), f, tt.rep)
			if got := e.Enhance(context.Background(), tt.r); got.Method != model.EnrichMetadata {
				t.Errorf("expected metadata only, got %s", got.Method)
			}
			if f.calls.Load() != 0 {
				t.Errorf("expected no fetch, got %d", f.calls.Load())
			}
		})
	}

	e := New(testConfig(), nil, stubReputation{})
	if got := e.Enhance(context.Background(), result(1, "https://example.com")); got.Method != model.EnrichMetadata {
		t.Errorf("expected metadata only without fetcher, got %s", got.Method)
	}
}

func TestEnhance_CachedAnalysisReused(t *testing.T) {
	f := &stubFetcher{content: articleText}
	e := New(testConfig(), f, stubReputation{})
	r := result(2, "https://example.com/gardens")

	first := e.Enhance(context.Background(), r)
	second := e.Enhance(context.Background(), r)

	if f.calls.Load() != 1 {
		t.Errorf("expected cached analysis to avoid a second fetch, got %d fetches", f.calls.Load())
	}
	if second.Method != model.EnrichHybrid || second.Adjustments != first.Adjustments {
		t.Errorf("expected identical hybrid record, got %+v vs %+v", second, first)
	}

	// a cached analysis applies even outside the fetch window
	r.OriginalPosition = 9
	if got := e.Enhance(context.Background(), r); got.Method != model.EnrichHybrid {
		t.Errorf("expected cached analysis reused for position 9, got %s", got.Method)
	}
}

func TestEnhance_FailedDomainShortCircuits(t *testing.T) {
	f := &stubFetcher{err: errors.New("all methods failed")}
	e := New(testConfig(), f, stubReputation{})
	r := result(1, "https://www.flaky.com/page")
	metaOnly := e.Metadata(r).Adjustments.Scale(0.3)

	for i := 0; i < 3; i++ {
		got := e.Enhance(context.Background(), r)
		if got.Method != model.EnrichFetchFailed {
			t.Fatalf("attempt %d: expected fetch_failed, got %s", i+1, got.Method)
		}
		if got.Confidence != 0.1 || got.Adjustments != metaOnly {
			t.Errorf("expected low confidence record with scaled metadata, got %+v", got)
		}
	}
	if !e.IsFailed("flaky.com") {
		t.Fatal("expected domain in failed set after 3 failures")
	}

	got := e.Enhance(context.Background(), r)
	if got.Method != model.EnrichDomainBlacklisted {
		t.Errorf("expected domain_blacklisted, got %s", got.Method)
	}
	if f.calls.Load() != 3 {
		t.Errorf("expected no fetch after blacklisting, got %d total", f.calls.Load())
	}
	if got.ContentType == "" {
		t.Error("expected metadata description kept on neutral record")
	}
}

func TestEnhance_FailureKeepsMetadataSignal(t *testing.T) {
	f := &stubFetcher{err: errors.New("all methods failed")}
	e := New(testConfig(), f, stubReputation{"example.edu": 0.5})
	r := result(1, "https://example.edu/courses")

	meta := e.Metadata(r)
	if meta.Adjustments.IsZero() {
		t.Fatalf("expected metadata adjustments for a reputable domain, got %+v", meta)
	}
	got := e.Enhance(context.Background(), r)
	if got.Method != model.EnrichFetchFailed {
		t.Fatalf("expected fetch_failed, got %s", got.Method)
	}
	if want := meta.Adjustments.Scale(0.3); got.Adjustments != want {
		t.Errorf("adjustments = %+v, want %+v", got.Adjustments, want)
	}
}

func TestEnhance_SuccessResetsFailureCount(t *testing.T) {
	f := &stubFetcher{err: errors.New("timeout")}
	e := New(testConfig(), f, stubReputation{})

	e.Enhance(context.Background(), result(1, "https://flaky.com/a"))
	e.Enhance(context.Background(), result(1, "https://flaky.com/b"))

	f.err = nil
	f.content = articleText
	e.Enhance(context.Background(), result(1, "https://flaky.com/c"))

	f.err = errors.New("timeout")
	e.Enhance(context.Background(), result(1, "https://flaky.com/d"))

	if e.IsFailed("flaky.com") {
		t.Error("expected success to reset the consecutive failure count")
	}
}

func TestEnhance_ShortContentIsFailure(t *testing.T) {
	f := &stubFetcher{content: "too short"}
	e := New(testConfig(), f, stubReputation{})

	got := e.Enhance(context.Background(), result(1, "https://example.com"))
	if got.Method != model.EnrichFetchFailed || !strings.Contains(got.Error, "insufficient") {
		t.Errorf("expected insufficient content failure, got %s %q", got.Method, got.Error)
	}
}

func TestEnhance_CancelledDoesNotCountFailure(t *testing.T) {
	f := &stubFetcher{content: articleText}
	e := New(testConfig(), f, stubReputation{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		e.Enhance(ctx, result(1, "https://example.com/x"))
	}
	if e.IsFailed("example.com") {
		t.Error("expected cancellation not to blacklist the domain")
	}
}

type panicClassifier struct{}

func (panicClassifier) Classify(model.SearchResult) model.ContentType { panic("boom") }

func TestEnhance_PanicYieldsDefault(t *testing.T) {
	e := New(testConfig(), nil, stubReputation{}, WithClassifier(panicClassifier{}))

	got := e.Enhance(context.Background(), result(1, "https://example.com"))
	if got.Method != model.EnrichDefault || got.Confidence != 0.1 || !got.Adjustments.IsZero() {
		t.Errorf("expected default record, got %+v", got)
	}
}

func TestCombine(t *testing.T) {
	meta := model.Enrichment{
		Adjustments: model.Adjustments{Empathy: 0.3, Certainty: -0.3, Boundary: 0.1, Refinement: 0},
		Confidence:  0.3,
		Method:      model.EnrichMetadata,
		ContentType: model.ContentAcademic,
	}
	content := model.Enrichment{
		Adjustments: model.Adjustments{Empathy: 0.2, Certainty: -0.6, Boundary: 0, Refinement: 0.5},
		Confidence:  0.7,
		Method:      model.EnrichFullContent,
	}

	got := Combine(meta, content)
	want := model.Adjustments{Empathy: 0.23, Certainty: -0.4, Boundary: 0.03, Refinement: 0.35}
	if !approx(got.Adjustments.Empathy, want.Empathy) || !approx(got.Adjustments.Certainty, want.Certainty) ||
		!approx(got.Adjustments.Boundary, want.Boundary) || !approx(got.Adjustments.Refinement, want.Refinement) {
		t.Errorf("Combine adjustments = %+v, want %+v", got.Adjustments, want)
	}
	if got.Method != model.EnrichHybrid || got.Confidence != 0.7 || got.ContentType != model.ContentAcademic {
		t.Errorf("unexpected combined record: %+v", got)
	}
}

func TestEnhancer_PersistsFailedDomains(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()

	cfg := testConfig()
	cfg.FailureThreshold = 1
	e := New(cfg, &stubFetcher{err: errors.New("down")}, stubReputation{}, WithStorage(backend))
	e.Enhance(ctx, result(1, "https://down.example/a"))
	if err := e.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	f := &stubFetcher{content: articleText}
	loaded := New(cfg, f, stubReputation{}, WithStorage(backend))
	if err := loaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := loaded.FailedDomains(); len(got) != 1 || got[0] != "down.example" {
		t.Errorf("expected persisted failed domain, got %v", got)
	}
	loaded.Enhance(ctx, result(1, "https://down.example/b"))
	if f.calls.Load() != 0 {
		t.Error("expected persisted failed domain to skip fetching")
	}

	if err := loaded.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}
	if len(loaded.FailedDomains()) != 0 {
		t.Error("expected failed set cleared")
	}
}
