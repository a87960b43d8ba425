package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// MaxContentRunes caps extracted text
const MaxContentRunes = 50_000

// minRegionWords is the word count a content selector must exceed to win
const minRegionWords = 50

// denylist removes boilerplate before the main region is chosen
var denylist = []string{
	"script", "style", "noscript", "template", "svg",
	"nav", "header", "footer", "aside", "form",
	"iframe", "embed", "object",
	".advertisement", ".advert", ".ad", ".ads", "[class^='ad-']", "[class*=' ad-']", "[id^='ad-']", "[id^='ads']",
	"[class*='banner']", "[class*='sponsor']",
	".sidebar", ".menu", ".navigation", ".social-share", ".comments", ".related-posts", ".popup", ".cookie-banner",
}

// contentSelectors are tried in order for the main region
var contentSelectors = []string{
	"main", "article", "[role='main']",
	".main-content", ".content", ".post-content", ".entry-content", ".article-content",
	"#content", "#main", "#article", ".story-body",
}

// paragraphTags insert a paragraph break around their text
var paragraphTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "pre": true, "br": true,
}

// cellTags insert a word break so adjacent cells do not run together
var cellTags = map[string]bool{
	"div": true, "section": true, "td": true, "th": true, "tr": true, "dd": true, "dt": true,
}

var (
	scriptStyleRe  = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)\s*>`)
	breakTagRe     = regexp.MustCompile(`(?i)<(br|/p|/h[1-6]|/li|/blockquote|/div)\b[^>]*>`)
	horizontalWSRe = regexp.MustCompile(`[^\S\n]+`)
	lineEdgeRe     = regexp.MustCompile(` *\n *`)
	manyBreaksRe   = regexp.MustCompile(`\n{3,}`)
)

// ExtractionError reports a failure of the structured extraction path.
// Extract recovers from it by falling back to tag stripping.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor turns raw HTML into readable article text
type Extractor struct {
	maxRunes int
	strict   *bluemonday.Policy
	sites    *Sites
	logger   *slog.Logger
}

// New creates an extractor. logger may be nil.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		maxRunes: MaxContentRunes,
		strict:   bluemonday.StrictPolicy(),
		sites:    NewSites(),
		logger:   logger,
	}
}

// Extract never fails; it returns "" when nothing readable is found
func (e *Extractor) Extract(raw string) string {
	return e.ExtractPage("", raw)
}

// ExtractPage is Extract with the site rule matching target applied
func (e *Extractor) ExtractPage(target, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text, err := e.structured(e.sites.Find(target), raw)
	if err == nil {
		return text
	}

	e.logger.Debug("structured extraction failed, stripping tags", "url", target, "error", err)
	return e.fallback(raw)
}

// Process adapts ExtractPage to the fetch queue's content processor hook
func (e *Extractor) Process(target, raw string) string {
	return e.ExtractPage(target, raw)
}

func (e *Extractor) structured(site Site, raw string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Stage: "structured", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", &ExtractionError{Stage: "parse", Err: err}
	}

	doc.Find(strings.Join(denylist, ", ")).Remove()
	if len(site.Remove) > 0 {
		doc.Find(strings.Join(site.Remove, ", ")).Remove()
	}

	region := mainRegion(doc, site.Content)

	var buf strings.Builder
	for _, n := range region.Nodes {
		collectText(&buf, n)
	}

	text = normalize(buf.String(), e.maxRunes)
	if text == "" {
		return "", &ExtractionError{Stage: "structured", Err: fmt.Errorf("no text in main region")}
	}
	return text, nil
}

// mainRegion picks the first site or generic content selector with enough
// words, otherwise the container that maximizes text length penalized by
// nesting depth
func mainRegion(doc *goquery.Document, siteSelectors []string) *goquery.Selection {
	for _, sel := range siteSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && WordCount(s.Text()) > 0 {
			return s
		}
	}
	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() > 0 && WordCount(s.Text()) > minRegionWords {
			return s
		}
	}

	best := doc.Find("body").First()
	if best.Length() == 0 {
		best = doc.Selection
	}
	bestScore := 0

	scores := make(map[*html.Node]int)
	for _, n := range doc.Nodes {
		measureText(n, 0, scores)
	}
	doc.Find("div, section, article, main").Each(func(_ int, s *goquery.Selection) {
		if score := scores[s.Nodes[0]]; score > bestScore {
			best = s
			bestScore = score
		}
	})

	return best
}

// textSpan is the byte length of a node's text with its leading and
// trailing whitespace runs
type textSpan struct {
	n, lead, trail int
}

func spanOf(s string) textSpan {
	lead := len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
	if lead == len(s) {
		return textSpan{n: lead, lead: lead, trail: lead}
	}
	return textSpan{n: len(s), lead: lead, trail: len(s) - len(strings.TrimRightFunc(s, unicode.IsSpace))}
}

func (a textSpan) join(b textSpan) textSpan {
	out := textSpan{n: a.n + b.n, lead: a.lead, trail: b.trail}
	if a.lead == a.n {
		out.lead = a.n + b.lead
	}
	if b.trail == b.n {
		out.trail = b.n + a.trail
	}
	return out
}

func (a textSpan) trimmed() int {
	if a.lead >= a.n {
		return 0
	}
	return a.n - a.lead - a.trail
}

// measureText scores every element below n in one pass: trimmed text length
// minus 100 per element ancestor
func measureText(n *html.Node, depth int, scores map[*html.Node]int) textSpan {
	if n.Type == html.TextNode {
		return spanOf(n.Data)
	}
	childDepth := depth
	if n.Type == html.ElementNode {
		childDepth++
	}
	var span textSpan
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		span = span.join(measureText(c, childDepth, scores))
	}
	if n.Type == html.ElementNode {
		scores[n] = span.trimmed() - 100*depth
	}
	return span
}

func collectText(buf *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	brk := ""
	if n.Type == html.ElementNode {
		switch {
		case paragraphTags[n.Data]:
			brk = "\n"
		case cellTags[n.Data]:
			brk = " "
		}
	}

	buf.WriteString(brk)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(buf, c)
	}
	buf.WriteString(brk)
}

func (e *Extractor) fallback(raw string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("fallback extraction failed", "panic", r)
			text = ""
		}
	}()

	s := scriptStyleRe.ReplaceAllString(raw, " ")
	s = breakTagRe.ReplaceAllString(s, "\n$0")
	s = e.strict.Sanitize(s)
	s = html.UnescapeString(s)
	return normalize(s, e.maxRunes)
}

// normalize applies NFC, collapses whitespace while keeping paragraph breaks,
// trims and caps the result at maxRunes
func normalize(s string, maxRunes int) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalWSRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "\n")
	s = manyBreaksRe.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}

// WordCount counts whitespace-separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
