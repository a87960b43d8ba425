package score

import (
	"math"
	"regexp"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Heuristic scores a result on the four axes without any remote call
type Heuristic interface {
	Components(r model.SearchResult) model.Components
}

// patternGroup adds weight for every match of re
type patternGroup struct {
	re     *regexp.Regexp
	weight float64
}

func group(weight float64, pattern string) patternGroup {
	return patternGroup{re: regexp.MustCompile(pattern), weight: weight}
}

// urlSignal applies delta once when the URL matches
type urlSignal struct {
	match func(u string) bool
	delta float64
}

type axisRules struct {
	groups []patternGroup
	urls   []urlSignal
}

func urlContains(subs ...string) func(string) bool {
	return func(u string) bool {
		for _, s := range subs {
			if strings.Contains(u, s) {
				return true
			}
		}
		return false
	}
}

// adToken matches "ad" or "ads" as a whole URL token, not inside words like "academic"
var adToken = regexp.MustCompile(`(^|[./?=&_-])ads?([./?=&_-]|$)`)

var (
	empathyRules = axisRules{
		groups: []patternGroup{
			group(0.05, `\b(help|support|care|community|together|inclusive|everyone|accessible)\b`),
			group(0.05, `\b(we|us|our|collective|shared|mutual)\b`),
			group(0.05, `\b(understand|empathy|compassion|kindness)\b`),
			group(-0.1, `\b(scam|trick|exploit|manipulate|deceive)\b`),
			group(-0.1, `\b(hate|attack|destroy|eliminate|crush)\b`),
			group(-0.1, `\b(only|exclusive|elite|superior)\b`),
		},
		urls: []urlSignal{
			{urlContains("edu", "org"), 0.1},
			{func(u string) bool { return adToken.MatchString(u) || strings.Contains(u, "affiliate") }, -0.2},
		},
	}

	certaintyRules = axisRules{
		groups: []patternGroup{
			group(0.1, `\b(may|might|could|possibly|perhaps|likely|probably)\b`),
			group(0.1, `\b(research suggests|research shows|studies show|according to|evidence indicates)\b`),
			group(0.1, `\b(it depends|varies|complex|nuanced)\b`),
			group(-0.15, `\b(always|never|definitely|absolutely|guaranteed|proven fact)\b`),
			group(-0.15, `\b(secret|miracle|instant|immediate|overnight)\b`),
			group(-0.15, `\b100%|\b(completely|totally|perfectly)\b`),
		},
	}

	boundaryRules = axisRules{
		groups: []patternGroup{
			group(0.1, `\b(both|and|also|including|diverse|variety|different perspectives)\b`),
			group(0.1, `\b(understand|bridge|connect|unite|common ground)\b`),
			group(0.1, `\b(collaboration|cooperation|partnership|alliance)\b`),
			group(-0.15, `\b(us vs\.? them|enemy|fight|battle|war|against)\b`),
			group(-0.15, `\b(only way|right way|wrong|stupid|idiotic)\b`),
			group(-0.15, `\b(liberals|conservatives|leftists|rightists)\b`),
		},
	}

	refinementRules = axisRules{
		groups: []patternGroup{
			group(0.1, `\b(learn|education|skill|develop|improve|grow)\b`),
			group(0.1, `\b(practice|training|course|tutorial|guide)\b`),
			group(0.1, `\b(knowledge|wisdom|understanding|insight)\b`),
			group(-0.2, `\b(quick fix|easy money|get rich quick|no effort)\b`),
			group(-0.2, `\b(lazy|shortcut|cheat|hack|trick)\b`),
			group(-0.2, `\b(instant|overnight|immediate|effortless)\b`),
		},
		urls: []urlSignal{
			{urlContains("edu", "course", "learn"), 0.2},
			{urlContains("casino", "lottery", "gambling"), -0.3},
		},
	}
)

// PatternHeuristic counts phrase matches in the title and snippet. Each axis
// starts at 0.5; a single pattern group moves it by at most MaxGroupShift.
type PatternHeuristic struct {
	MaxGroupShift float64 // 0 means unlimited
}

func (h PatternHeuristic) Components(r model.SearchResult) model.Components {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	u := strings.ToLower(r.URL)

	return model.Components{
		Empathy:    h.axis(empathyRules, text, u),
		Certainty:  h.axis(certaintyRules, text, u),
		Boundary:   h.axis(boundaryRules, text, u),
		Refinement: h.axis(refinementRules, text, u),
	}
}

func (h PatternHeuristic) axis(rules axisRules, text, u string) float64 {
	score := 0.5
	for _, s := range rules.urls {
		if s.match(u) {
			score += s.delta
		}
	}
	for _, g := range rules.groups {
		n := len(g.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		shift := float64(n) * g.weight
		if h.MaxGroupShift > 0 {
			shift = math.Max(-h.MaxGroupShift, math.Min(h.MaxGroupShift, shift))
		}
		score += shift
	}
	return model.Clamp(score, 0, 1)
}

const enhancedSuffix = " + content enhancement"

// heuristicScore builds the full score from heuristic components and an
// optional enrichment
func heuristicScore(c model.Components, enrichment *model.Enrichment) model.EOQScore {
	method := model.MethodHeuristic
	suffix := ""
	if enrichment != nil {
		c = c.Apply(enrichment.Adjustments)
		method = model.MethodHeuristicEnhanced
		suffix = enhancedSuffix
	} else {
		c = c.Clamp01()
	}

	return model.EOQScore{
		Total:      model.Clamp(c.Total(), 0, 1),
		Components: c,
		Breakdown: model.Breakdown{
			Empathy: model.EmpathyBreakdown{
				Golden:    c.Empathy,
				Silver:    c.Empathy,
				Platinum:  c.Empathy,
				Love:      c.Empathy,
				Reasoning: "Heuristic pattern analysis" + suffix,
			},
			Certainty:  model.AxisReasoning{Score: c.Certainty, Reasoning: "Heuristic uncertainty analysis" + suffix},
			Boundary:   model.AxisReasoning{Score: c.Boundary, Reasoning: "Heuristic bridge/division analysis" + suffix},
			Refinement: model.AxisReasoning{Score: c.Refinement, Reasoning: "Heuristic growth/stagnation analysis" + suffix},
		},
		Enhancement: enrichment,
		Method:      method,
	}
}
