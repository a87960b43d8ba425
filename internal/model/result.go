package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SearchResult is one organic result handed in by the caller
type SearchResult struct {
	Title            string `json:"title"`
	Snippet          string `json:"snippet"`
	URL              string `json:"url"`
	OriginalPosition int    `json:"original_position"` // 1-based rank on the results page
}

// Sanitized returns a copy with title and snippet cleaned for prompts and pattern matching
func (r SearchResult) Sanitized() SearchResult {
	r.Title = SanitizeText(r.Title)
	r.Snippet = SanitizeText(r.Snippet)
	r.URL = strings.TrimSpace(r.URL)
	return r
}

// SanitizeText removes control characters and Unicode specials, maps line and
// paragraph separators to spaces and returns NFC-normalized, trimmed text.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029':
			b.WriteRune(' ')
		case r <= 0x1F, r >= 0x7F && r <= 0x9F:
			// drop
		case r >= 0xFFF0 && r <= 0xFFFF:
			// drop
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(norm.NFC.String(b.String()))
}

// ScoredResult pairs a result with its score, keeping submission order
type ScoredResult struct {
	Result SearchResult `json:"result"`
	Score  EOQScore     `json:"score"`
	Index  int          `json:"index"` // position in the submitted batch
}

// ReorderingStats summarizes how far a rerank moved results
type ReorderingStats struct {
	TotalMoved    int        `json:"total_moved"`
	AverageChange float64    `json:"average_change"` // mean absolute rank change of the moved results
	TopScores     []TopScore `json:"top_scores"`
}

// TopScore is one entry of ReorderingStats.TopScores
type TopScore struct {
	Title            string  `json:"title"`
	Score            float64 `json:"score"`
	OriginalPosition int     `json:"original_position"`
}

// SessionStats are running counters for the lifetime of a pipeline
type SessionStats struct {
	SearchesEnhanced      int     `json:"searches_enhanced"`
	TotalScoresCalculated int     `json:"total_scores_calculated"`
	AverageImprovement    float64 `json:"average_improvement"` // running mean of batch average total x100
}
