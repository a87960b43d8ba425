package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestExtract_PrefersArticleAndDropsBoilerplate(t *testing.T) {
	page := `<html><head><title>t</title><style>.x{}</style></head><body>
<nav>Home About Contact</nav>
<div class="ad-slot">Buy now</div>
<article>
  <h1>Understanding Climate Science</h1>
  <p>` + words(60, "research") + `</p>
  <script>var tracking = true;</script>
  <p>Second paragraph here.</p>
</article>
<footer>copyright</footer>
</body></html>`

	got := New(nil).Extract(page)

	for _, unwanted := range []string{"Home About", "Buy now", "tracking", "copyright", ".x{}"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("expected %q removed, got %q", unwanted, got)
		}
	}
	if !strings.HasPrefix(got, "Understanding Climate Science\n\n") {
		t.Errorf("expected heading followed by paragraph break, got %q", got)
	}
	if !strings.HasSuffix(got, "research\n\nSecond paragraph here.") {
		t.Errorf("expected paragraphs separated by a blank line, got %q", got)
	}
}

func TestExtract_SelectorNeedsEnoughWords(t *testing.T) {
	page := `<html><body>
<main><p>Too short to count.</p></main>
<div class="wrapper"><div class="body-text"><p>` + words(80, "learning") + `</p></div></div>
</body></html>`

	got := New(nil).Extract(page)
	if WordCount(got) < 80 {
		t.Errorf("expected the long div to win, got %d words: %q", WordCount(got), got)
	}
	if strings.Contains(got, "Too short") {
		t.Errorf("expected short main region skipped, got %q", got)
	}
}

func TestMeasureText_MatchesSelectionText(t *testing.T) {
	page := `<html><body>
<div id="outer">  <section> lead <span>  </span></section>
  <div id="inner"><p> ` + words(30, "growth") + ` </p><p>tail  </p></div>
  <div id="blank">   <div> </div> </div>
</div></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	scores := make(map[*html.Node]int)
	for _, n := range doc.Nodes {
		measureText(n, 0, scores)
	}

	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		want := len(strings.TrimSpace(s.Text())) - 100*s.Parents().Length()
		if got := scores[s.Nodes[0]]; got != want {
			markup, _ := goquery.OuterHtml(s)
			t.Errorf("score = %d, want %d for %.40q", got, want, markup)
		}
	})
}

func TestExtract_DeepNesting(t *testing.T) {
	const depth = 500
	page := "<html><body>" + strings.Repeat("<div>", depth) + "<p>" + words(20, "deep") + "</p>" +
		strings.Repeat("</div>", depth) + "</body></html>"

	if got := New(nil).Extract(page); !strings.Contains(got, "deep") {
		t.Errorf("expected nested text extracted, got %q", got)
	}
}

func TestExtract_CapsLength(t *testing.T) {
	page := "<html><body><article><p>" + strings.Repeat("a", MaxContentRunes+5000) + "</p></article></body></html>"

	got := New(nil).Extract(page)
	if n := utf8.RuneCountInString(got); n != MaxContentRunes {
		t.Errorf("expected %d runes, got %d", MaxContentRunes, n)
	}
}

func TestExtract_Empty(t *testing.T) {
	e := New(nil)
	for _, in := range []string{"", "   ", "<html><body><script>x()</script></body></html>"} {
		if got := e.Extract(in); got != "" {
			t.Errorf("Extract(%q) = %q, want empty", in, got)
		}
	}
}

func TestExtract_PlainText(t *testing.T) {
	got := New(nil).Extract("just   some\ttext")
	if got != "just some text" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestFallback_StripsTagsAndEntities(t *testing.T) {
	e := New(nil)
	got := e.fallback(`<div><p>Fish &amp; chips</p><script>evil()</script><p>Second</p></div>`)

	if got != "Fish & chips\nSecond" {
		t.Errorf("unexpected fallback output: %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a  \t b", "a b"},
		{"a \n\n\n\n b", "a\n\nb"},
		{"\r\n x \r\n", "x"},
		{"e\u0301", "\u00e9"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in, 0); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWordCount(t *testing.T) {
	if n := WordCount("one two\nthree\t four"); n != 4 {
		t.Errorf("expected 4 words, got %d", n)
	}
}
