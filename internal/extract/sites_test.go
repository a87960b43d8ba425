package extract

import (
	"strings"
	"testing"
)

func TestSites_Find(t *testing.T) {
	sites := NewSites()
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Climate", "wikipedia"},
		{"https://wikipedia.org/", "wikipedia"},
		{"https://www.law.cornell.edu/uscode/text/17", "legal"},
		{"https://www.legislation.gov.uk/ukpga/2018/12", "legal"},
		{"https://notwikipedia.org/wiki/x", "generic"},
		{"https://example.com/a", "generic"},
		{"", "generic"},
		{"://bad", "generic"},
	}
	for _, tt := range tests {
		if got := sites.Find(tt.url).Name; got != tt.want {
			t.Errorf("Find(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestSites_RegisterOrder(t *testing.T) {
	sites := &Sites{generic: Site{Name: "generic"}}
	sites.Register(Site{Name: "first", Hosts: []string{"example.com"}})
	sites.Register(Site{Name: "second", Hosts: []string{"example.com"}})

	if got := sites.Find("https://a.example.com").Name; got != "first" {
		t.Errorf("expected earlier registration to win, got %s", got)
	}
}

func TestExtractPage_Wikipedia(t *testing.T) {
	page := `<html><body>
<div id="mw-head">Log in Create account</div>
<div id="mw-content-text"><div class="mw-parser-output">
  <div class="hatnote">For other uses, see Climate (disambiguation).</div>
  <table class="infobox"><tr><td>Infobox data</td></tr></table>
  <p>Climate is the long-term weather pattern in a region.<sup class="reference">[1]</sup></p>
  <h2>History<span class="mw-editsection">[edit]</span></h2>
  <p>Records began centuries ago.</p>
  <div class="navbox">Weather navigation</div>
</div></div>
</body></html>`

	e := New(nil)
	got := e.ExtractPage("https://en.wikipedia.org/wiki/Climate", page)

	for _, unwanted := range []string{"Log in", "For other uses", "Infobox data", "[1]", "[edit]", "Weather navigation"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("expected %q removed, got %q", unwanted, got)
		}
	}
	if !strings.HasPrefix(got, "Climate is the long-term weather pattern in a region.") {
		t.Errorf("expected article text first, got %q", got)
	}
	if !strings.Contains(got, "History\n\nRecords began centuries ago.") {
		t.Errorf("expected section heading kept, got %q", got)
	}

	// the same page through the generic rules keeps the site chrome
	if generic := e.ExtractPage("https://example.com/climate", page); !strings.Contains(generic, "Infobox data") {
		t.Errorf("expected generic rules to leave wikipedia boilerplate, got %q", generic)
	}
}

func TestProcess_UsesTarget(t *testing.T) {
	page := `<html><body><div id="mw-content-text"><p>Short article.</p><div class="navbox">nav</div></div></body></html>`
	if got := New(nil).Process("https://de.wikipedia.org/wiki/X", page); got != "Short article." {
		t.Errorf("unexpected processed text: %q", got)
	}
}
