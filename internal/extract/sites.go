package extract

import (
	"net/url"
	"strings"
)

// Site holds extraction rules for pages of one kind of site
type Site struct {
	Name    string
	Hosts   []string // host or parent domain suffixes
	Content []string // main region selectors, tried before the generic ones
	Remove  []string // site boilerplate, removed after the generic denylist
}

func (s Site) matches(host string) bool {
	for _, h := range s.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Sites maps URLs to their extraction rules. Unmatched URLs get the generic
// site, which has no rules of its own.
type Sites struct {
	sites   []Site
	generic Site
}

// NewSites returns the built-in rules
func NewSites() *Sites {
	s := &Sites{generic: Site{Name: "generic"}}

	s.Register(Site{
		Name:    "wikipedia",
		Hosts:   []string{"wikipedia.org"},
		Content: []string{"#mw-content-text .mw-parser-output", "#mw-content-text"},
		Remove: []string{
			"sup.reference", ".reference", ".reflist", ".references",
			".mw-editsection", ".navbox", ".vertical-navbox", ".infobox",
			"#toc", ".toc", ".hatnote", ".metadata", ".ambox", ".thumbcaption",
		},
	})
	s.Register(Site{
		Name:    "legal",
		Hosts:   []string{"legislation.gov.uk", "law.cornell.edu", "justice.gov"},
		Content: []string{"#viewLegContents", ".LegSnippet", "#main-content", "main"},
		Remove:  []string{".breadcrumb", ".breadcrumbs", ".toc", "#toc", ".skip-link", ".print-only"},
	})
	return s
}

// Register adds rules. Earlier registrations win on overlap.
func (s *Sites) Register(site Site) {
	s.sites = append(s.sites, site)
}

// Find returns the rules for target
func (s *Sites) Find(target string) Site {
	host := hostOf(target)
	if host == "" {
		return s.generic
	}
	for _, site := range s.sites {
		if site.matches(host) {
			return site
		}
	}
	return s.generic
}

func hostOf(target string) string {
	if target == "" {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
