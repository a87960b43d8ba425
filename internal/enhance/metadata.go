package enhance

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Classifier assigns a coarse content type to a result
type Classifier interface {
	Classify(r model.SearchResult) model.ContentType
}

// URLScorer scores a URL for quality in [-0.3, 0.3]
type URLScorer interface {
	Score(rawURL string) float64
}

// KeywordClassifier checks each content type in priority order; the first match wins
type KeywordClassifier struct{}

type typeRule struct {
	contentType model.ContentType
	url         []string
	title       []string
	snippet     []string
}

var typeRules = []typeRule{
	{model.ContentAcademic, []string{"arxiv", "pubmed"}, []string{"study", "research"}, nil},
	{model.ContentNews, []string{"news"}, []string{"breaking"}, []string{"reported", "according to"}},
	{model.ContentEducational, []string{".edu"}, []string{"course", "tutorial", "guide"}, nil},
	{model.ContentCommercial, []string{"shop", "buy"}, []string{"price"}, []string{"$"}},
	{model.ContentBlog, []string{"blog"}, []string{"opinion"}, []string{"i think", "in my view"}},
}

func (KeywordClassifier) Classify(r model.SearchResult) model.ContentType {
	title := strings.ToLower(r.Title)
	snippet := strings.ToLower(r.Snippet)
	u := strings.ToLower(r.URL)

	for _, rule := range typeRules {
		if containsAny(u, rule.url) || containsAny(title, rule.title) || containsAny(snippet, rule.snippet) {
			return rule.contentType
		}
	}
	return model.ContentGeneral
}

// PatternURLScorer rewards academic, governmental and reputable news URLs
// and penalizes clickbait wording and throwaway TLDs
type PatternURLScorer struct{}

var (
	academicURLPatterns = []string{
		"scholar.google", "arxiv.org", "pubmed", "jstor", "researchgate",
		"academia.edu", "semanticscholar", "ncbi.nlm.nih.gov",
	}
	qualityNewsURLs = []string{
		"reuters.com", "apnews.com", "bbc.com", "npr.org", "pbs.org",
		"theguardian.com", "washingtonpost.com", "nytimes.com",
	}
	negativeURLPatterns = []string{
		"clickbait", "viral", "shocking", "unbelievable", "secret",
		"affiliate", "promo", "discount", "deal", "buy-now",
	}
	suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf"}
)

func (PatternURLScorer) Score(rawURL string) float64 {
	u := strings.ToLower(rawURL)
	host := u
	if parsed, err := url.Parse(u); err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}

	score := 0.0
	if strings.Contains(u, ".edu") || strings.Contains(u, ".ac.") {
		score += 0.15
	}
	if strings.Contains(u, ".org") {
		score += 0.1
	}
	if strings.Contains(u, ".gov") {
		score += 0.12
	}
	if containsAny(u, academicURLPatterns) {
		score += 0.2
	}
	if containsAny(u, qualityNewsURLs) {
		score += 0.1
	}
	if containsAny(u, negativeURLPatterns) {
		score -= 0.15
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			score -= 0.2
			break
		}
	}
	return model.Clamp(score, -model.MaxMetadataAdjustment, model.MaxMetadataAdjustment)
}

// Quality signal names
const (
	SignalTitleLength   = "appropriate_title_length"
	SignalCompleteTitle = "complete_title"
	SignalSnippet       = "substantial_snippet"
	SignalSecure        = "secure_connection"
	SignalCleanURL      = "clean_url"
	SignalDated         = "dated_content"
)

var dateToken = regexp.MustCompile(`\d{4}|\d{1,2}/\d{1,2}/\d{2,4}`)

// QualitySignals lists the structural quality signals present in a result
func QualitySignals(r model.SearchResult) []string {
	var signals []string

	if n := utf8.RuneCountInString(r.Title); n > 10 && n < 100 {
		signals = append(signals, SignalTitleLength)
	}
	if !strings.Contains(r.Title, "...") && !strings.Contains(r.Title, "…") {
		signals = append(signals, SignalCompleteTitle)
	}
	if utf8.RuneCountInString(r.Snippet) > 50 {
		signals = append(signals, SignalSnippet)
	}
	if strings.HasPrefix(strings.ToLower(r.URL), "https://") {
		signals = append(signals, SignalSecure)
	}
	if _, query, found := strings.Cut(r.URL, "?"); !found || len(query) < 50 {
		signals = append(signals, SignalCleanURL)
	}
	if dateToken.MatchString(r.Snippet) {
		signals = append(signals, SignalDated)
	}
	return signals
}

// metadataAdjustments derives per-axis deltas from the phase 1 signals
func metadataAdjustments(reputation, urlScore float64, ct model.ContentType, signals int) model.Adjustments {
	rep := reputation * 0.1
	adj := model.Adjustments{
		Empathy:    rep + urlScore*0.5,
		Certainty:  rep + urlScore*0.3,
		Refinement: urlScore * 0.4,
	}

	switch ct {
	case model.ContentAcademic:
		adj.Certainty += 0.2
		adj.Refinement += 0.15
	case model.ContentEducational:
		adj.Refinement += 0.25
		adj.Empathy += 0.1
	case model.ContentNews:
		adj.Certainty += 0.1
	case model.ContentCommercial:
		adj.Empathy -= 0.1
	}

	bonus := float64(signals) * 0.02
	adj = adj.Add(model.Adjustments{Empathy: bonus, Certainty: bonus, Boundary: bonus, Refinement: bonus})
	return adj.Clamp(model.MaxMetadataAdjustment)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
