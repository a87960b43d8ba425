package enhance

import (
	"math"
	"regexp"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/extract"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// ContentAnalyzer scores the extracted text of a page
type ContentAnalyzer interface {
	Analyze(text string) model.Enrichment
}

// phraseGroup counts how many distinct phrases of a group appear in a text
type phraseGroup struct {
	weight   float64
	limit    float64
	patterns []*regexp.Regexp
}

// newPhraseGroup matches whole words. A trailing "*" matches any word
// starting with the stem, so "learn*" also counts "learning".
func newPhraseGroup(weight, limit float64, phrases ...string) phraseGroup {
	g := phraseGroup{weight: weight, limit: limit}
	for _, p := range phrases {
		suffix := `\b`
		if stem, ok := strings.CutSuffix(p, "*"); ok {
			p, suffix = stem, `\w*`
		}
		g.patterns = append(g.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(p)+suffix))
	}
	return g
}

func (g phraseGroup) score(lower string) float64 {
	n := 0
	for _, re := range g.patterns {
		if re.MatchString(lower) {
			n++
		}
	}
	return math.Min(g.limit, float64(n)*g.weight)
}

var (
	empathyPhrases = newPhraseGroup(0.02, 0.2,
		"help", "support", "community", "together", "inclusive", "accessible",
		"everyone", "people", "human", "care", "wellbeing", "benefit")
	hedgingPhrases = newPhraseGroup(0.02, 0.15,
		"may", "might", "could", "possibly", "likely", "suggests",
		"according to", "research shows", "study found", "evidence indicates")
	bridgePhrases = newPhraseGroup(0.03, 0.15,
		"both", "however", "on the other hand", "different perspectives",
		"various viewpoints", "balanced", "nuanced", "complex")
	growthPhrases = newPhraseGroup(0.02, 0.2,
		"learn*", "educat*", "skill*", "develop*", "improv*", "grow*",
		"practi*", "train*", "knowledge", "understanding", "insight*")
)

const wordsPerMinute = 200

// KeywordAnalyzer derives adjustments from length and phrase presence
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Analyze(text string) model.Enrichment {
	words := extract.WordCount(text)
	lower := strings.ToLower(text)

	var adj model.Adjustments
	if words > 500 {
		adj.Refinement += 0.1
	}
	if words > 2000 {
		adj.Certainty += 0.05
	}

	adj.Empathy += empathyPhrases.score(lower)
	adj.Certainty += hedgingPhrases.score(lower)
	adj.Boundary += bridgePhrases.score(lower)
	adj.Refinement += growthPhrases.score(lower)

	return model.Enrichment{
		Adjustments:    adj,
		Confidence:     0.7,
		Method:         model.EnrichFullContent,
		WordCount:      words,
		ReadingMinutes: int(math.Ceil(float64(words) / wordsPerMinute)),
	}
}
