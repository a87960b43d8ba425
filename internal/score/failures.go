package score

import (
	"sync"

	"github.com/thedivinememe/eoq-search-reranker/internal/llm"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

type failureTally struct {
	mu    sync.Mutex
	stats model.FailureStats
}

// record counts one failure and returns the updated totals
func (t *failureTally) record(kind llm.Kind) model.FailureStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total++
	switch kind {
	case llm.KindRateLimit:
		t.stats.RateLimits++
	case llm.KindAuth:
		t.stats.AuthErrors++
	case llm.KindNetwork:
		t.stats.NetworkErrors++
	case llm.KindParse:
		t.stats.ParseErrors++
	default:
		t.stats.OtherErrors++
	}
	return t.stats
}

func (t *failureTally) snapshot() model.FailureStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

var failureHints = map[llm.Kind]string{
	llm.KindRateLimit: "Rate limit hit. Consider reducing request frequency.",
	llm.KindAuth:      "Authentication error. Check API key validity.",
	llm.KindNetwork:   "Network error. Check connectivity to the scoring backend.",
	llm.KindParse:     "Response parsing error. Backend returned an unexpected format.",
}

// Recommendations turns failure counts into operator advice
func Recommendations(stats model.FailureStats) []string {
	var out []string
	if stats.RateLimits > 0 {
		out = append(out, "Rate limits: the API key is hitting rate limits. Upgrade the plan or rely on the score cache to reduce calls.")
	}
	if stats.AuthErrors > 0 {
		out = append(out, "Authentication: the API key may be invalid or expired. Check the key and the provider account.")
	}
	if stats.NetworkErrors > 0 {
		out = append(out, "Network: connection problems detected. Check connectivity or try again later.")
	}
	if stats.ParseErrors > 0 {
		out = append(out, "Parsing: the backend returned unexpected responses. Heuristic scoring is used as fallback.")
	}
	if stats.Total > 0 && stats.OtherErrors == stats.Total {
		out = append(out, "Unknown errors only: run with --verbose to see the backend error messages.")
	}
	return out
}
