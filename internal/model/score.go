package model

import "time"

// ScoreMethod identifies which path produced an EOQScore
type ScoreMethod string

const (
	MethodRemote            ScoreMethod = "openai" // any remote backend; Provider names which one
	MethodHeuristic         ScoreMethod = "heuristic"
	MethodHeuristicEnhanced ScoreMethod = "heuristic_enhanced"
	MethodError             ScoreMethod = "error"
)

// Axis weights of the EOQ total
const (
	WeightEmpathy    = 0.40
	WeightCertainty  = 0.25
	WeightBoundary   = 0.20
	WeightRefinement = 0.15
)

// Empathy sub-rule weights
const (
	WeightGolden   = 0.30
	WeightSilver   = 0.25
	WeightPlatinum = 0.25
	WeightLove     = 0.20
)

// Components are the four axis scores, each in [0,1]
type Components struct {
	Empathy    float64 `json:"empathy"`
	Certainty  float64 `json:"certainty"`
	Boundary   float64 `json:"boundary"`
	Refinement float64 `json:"refinement"`
}

// Total returns the weighted EOQ total
func (c Components) Total() float64 {
	return c.Empathy*WeightEmpathy +
		c.Certainty*WeightCertainty +
		c.Boundary*WeightBoundary +
		c.Refinement*WeightRefinement
}

// Clamp01 bounds every axis to [0,1]
func (c Components) Clamp01() Components {
	return Components{
		Empathy:    Clamp(c.Empathy, 0, 1),
		Certainty:  Clamp(c.Certainty, 0, 1),
		Boundary:   Clamp(c.Boundary, 0, 1),
		Refinement: Clamp(c.Refinement, 0, 1),
	}
}

// Apply adds enrichment adjustments axis by axis and re-clamps to [0,1]
func (c Components) Apply(adj Adjustments) Components {
	return Components{
		Empathy:    c.Empathy + adj.Empathy,
		Certainty:  c.Certainty + adj.Certainty,
		Boundary:   c.Boundary + adj.Boundary,
		Refinement: c.Refinement + adj.Refinement,
	}.Clamp01()
}

// EmpathyBreakdown holds the four empathy sub-rule scores
type EmpathyBreakdown struct {
	Golden    float64 `json:"golden"`
	Silver    float64 `json:"silver"`
	Platinum  float64 `json:"platinum"`
	Love      float64 `json:"love"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Combined returns the weighted empathy score
func (e EmpathyBreakdown) Combined() float64 {
	return e.Golden*WeightGolden + e.Silver*WeightSilver + e.Platinum*WeightPlatinum + e.Love*WeightLove
}

// AxisReasoning is the score and rationale for a single axis
type AxisReasoning struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Breakdown explains how each component was reached
type Breakdown struct {
	Empathy    EmpathyBreakdown `json:"empathy"`
	Certainty  AxisReasoning    `json:"certainty"`
	Boundary   AxisReasoning    `json:"boundary"`
	Refinement AxisReasoning    `json:"refinement"`
}

// EOQScore is the result of scoring one SearchResult
type EOQScore struct {
	Total          float64     `json:"total"`
	Components     Components  `json:"components"`
	Breakdown      Breakdown   `json:"breakdown"`
	Enhancement    *Enrichment `json:"enhancement,omitempty"`
	Method         ScoreMethod `json:"method"`
	Provider       string      `json:"provider,omitempty"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// NeutralScore returns a 0.5 score on every axis
func NeutralScore(method ScoreMethod, reason string) EOQScore {
	c := Components{Empathy: 0.5, Certainty: 0.5, Boundary: 0.5, Refinement: 0.5}
	return EOQScore{
		Total:      c.Total(),
		Components: c,
		Breakdown: Breakdown{
			Empathy:    EmpathyBreakdown{Golden: 0.5, Silver: 0.5, Platinum: 0.5, Love: 0.5, Reasoning: reason},
			Certainty:  AxisReasoning{Score: 0.5, Reasoning: reason},
			Boundary:   AxisReasoning{Score: 0.5, Reasoning: reason},
			Refinement: AxisReasoning{Score: 0.5, Reasoning: reason},
		},
		Method:         method,
		FallbackReason: reason,
		Timestamp:      time.Now(),
	}
}

// FailureStats tallies remote backend failures by reason
type FailureStats struct {
	RateLimits    int `json:"rate_limits"`
	AuthErrors    int `json:"auth_errors"`
	NetworkErrors int `json:"network_errors"`
	ParseErrors   int `json:"parse_errors"`
	OtherErrors   int `json:"other_errors"`
	Total         int `json:"total"`
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
