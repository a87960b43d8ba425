package reputation

import (
	"math"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// seedScores is the curated starting reputation of well-known domains
var seedScores = map[string]float64{
	"arxiv.org":               0.9,
	"pubmed.ncbi.nlm.nih.gov": 0.9,
	"scholar.google.com":      0.8,
	"jstor.org":               0.8,
	"researchgate.net":        0.7,
	"academia.edu":            0.6,

	"reuters.com":     0.7,
	"apnews.com":      0.7,
	"bbc.com":         0.6,
	"npr.org":         0.6,
	"pbs.org":         0.6,
	"theguardian.com": 0.5,

	"mit.edu":      0.8,
	"stanford.edu": 0.8,
	"harvard.edu":  0.8,
	"berkeley.edu": 0.7,

	"cdc.gov":  0.7,
	"nih.gov":  0.8,
	"nasa.gov": 0.7,
	"nist.gov": 0.7,

	"wikipedia.org":   0.4,
	"khanacademy.org": 0.8,
	"coursera.org":    0.6,
	"edx.org":         0.6,

	"clickbait.com":     -0.8,
	"viral-content.net": -0.7,
	"fake-news.info":    -0.9,
}

type keywordGroup struct {
	weight   float64
	keywords []string
}

var domainKeywordGroups = []keywordGroup{
	{0.15, []string{"research", "institute", "university", "college", "academy", "library", "museum", "foundation", "center", "lab"}},
	{-0.4, []string{"clickbait", "viral", "buzz", "gossip", "scandal", "shocking", "secret", "trick", "hack", "cheat", "scam", "fake"}},
	{-0.1, []string{"shop", "store", "buy", "sell", "deal", "discount", "promo", "affiliate", "marketing", "ads"}},
	{-0.6, []string{"free", "win", "prize", "lottery", "casino", "porn", "xxx"}},
}

var academicSuffixes = []string{".ac.uk", ".ac.jp", ".edu.au", ".ac.in"}

var (
	trustedSubdomains    = []string{"www", "blog", "news", "research", "docs", "help", "support", "learn", "education", "library"}
	suspiciousSubdomains = []string{"ads", "promo", "affiliate", "spam", "click", "download", "free", "win", "prize"}
)

// Domain returns the bare domain of a URL: lowercased host without port or
// leading "www.". Bare hostnames are accepted. Unparseable input yields "unknown".
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "unknown"
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

// baseScore computes the reputation of a domain from static signals and its
// interaction history, before drift and clamping
func baseScore(domain string, hist *model.InteractionHistory) float64 {
	return seedScore(domain) +
		patternScore(domain) +
		interactionScore(hist) +
		tldScore(domain) +
		subdomainScore(domain)
}

// seedScore matches the domain or its closest listed parent
func seedScore(domain string) float64 {
	for d := domain; d != ""; {
		if s, ok := seedScores[d]; ok {
			return s
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	return 0
}

func patternScore(domain string) float64 {
	score := 0.0

	switch {
	case strings.HasSuffix(domain, ".edu"):
		score += 0.3
	case hasAnySuffix(domain, academicSuffixes):
		score += 0.3
	case strings.HasSuffix(domain, ".gov"):
		score += 0.2
	case strings.HasSuffix(domain, ".org"):
		score += 0.1
	}

	name := registrableName(domain)
	for _, g := range domainKeywordGroups {
		if containsAny(name, g.keywords) {
			score += g.weight
		}
	}
	return score
}

func interactionScore(hist *model.InteractionHistory) float64 {
	if hist == nil {
		return 0
	}

	clicks := float64(hist.Clicks)
	avgMinutes := hist.TimeSpentSeconds / 60 / math.Max(clicks, 1)

	return math.Min(0.2, clicks*0.02) +
		math.Min(0.15, avgMinutes*0.01) +
		math.Min(0.1, float64(hist.Returns)*0.05)
}

func tldScore(domain string) float64 {
	tld := domain
	if i := strings.LastIndexByte(domain, '.'); i >= 0 {
		tld = domain[i+1:]
	}

	switch tld {
	case "edu", "gov", "org", "ac":
		return 0.1
	case "com", "net", "info":
		return 0
	case "tk", "ml", "ga", "cf", "click", "download":
		return -0.3
	}
	if len(tld) == 2 {
		return 0.05
	}
	return 0
}

func subdomainScore(domain string) float64 {
	sub := subdomainLabel(domain)
	if sub == "" {
		return 0
	}
	for _, s := range trustedSubdomains {
		if sub == s {
			return 0.05
		}
	}
	for _, s := range suspiciousSubdomains {
		if sub == s {
			return -0.2
		}
	}
	return 0
}

// subdomainLabel returns the leftmost label in front of the registrable domain
func subdomainLabel(domain string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil || etld1 == domain {
		return ""
	}
	sub := strings.TrimSuffix(domain, "."+etld1)
	if i := strings.IndexByte(sub, '.'); i >= 0 {
		sub = sub[:i]
	}
	return sub
}

// registrableName strips the public suffix so keywords are not matched against it
func registrableName(domain string) string {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if suffix == "" || suffix == domain {
		return domain
	}
	return strings.TrimSuffix(domain, "."+suffix)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
