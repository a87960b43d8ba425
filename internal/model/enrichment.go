package model

import "time"

// EnrichmentMethod records how an Enrichment was produced
type EnrichmentMethod string

const (
	EnrichMetadata          EnrichmentMethod = "metadata"
	EnrichFullContent       EnrichmentMethod = "full_content"
	EnrichHybrid            EnrichmentMethod = "hybrid"
	EnrichDomainBlacklisted EnrichmentMethod = "domain_blacklisted"
	EnrichFetchFailed       EnrichmentMethod = "fetch_failed"
	EnrichDefault           EnrichmentMethod = "default"
)

// ContentType is the coarse classification of a result
type ContentType string

const (
	ContentAcademic    ContentType = "academic"
	ContentNews        ContentType = "news"
	ContentEducational ContentType = "educational"
	ContentCommercial  ContentType = "commercial"
	ContentBlog        ContentType = "blog"
	ContentGeneral     ContentType = "general"
)

// Adjustment bounds
const (
	MaxMetadataAdjustment = 0.3
	MaxEnrichAdjustment   = 0.4
)

// Adjustments are signed per-axis deltas applied on top of component scores
type Adjustments struct {
	Empathy    float64 `json:"empathy"`
	Certainty  float64 `json:"certainty"`
	Boundary   float64 `json:"boundary"`
	Refinement float64 `json:"refinement"`
}

// Add returns the axis-wise sum
func (a Adjustments) Add(b Adjustments) Adjustments {
	return Adjustments{
		Empathy:    a.Empathy + b.Empathy,
		Certainty:  a.Certainty + b.Certainty,
		Boundary:   a.Boundary + b.Boundary,
		Refinement: a.Refinement + b.Refinement,
	}
}

// Scale multiplies every axis by f
func (a Adjustments) Scale(f float64) Adjustments {
	return Adjustments{
		Empathy:    a.Empathy * f,
		Certainty:  a.Certainty * f,
		Boundary:   a.Boundary * f,
		Refinement: a.Refinement * f,
	}
}

// Clamp bounds every axis to [-limit, limit]
func (a Adjustments) Clamp(limit float64) Adjustments {
	return Adjustments{
		Empathy:    Clamp(a.Empathy, -limit, limit),
		Certainty:  Clamp(a.Certainty, -limit, limit),
		Boundary:   Clamp(a.Boundary, -limit, limit),
		Refinement: Clamp(a.Refinement, -limit, limit),
	}
}

// IsZero reports whether every axis is zero
func (a Adjustments) IsZero() bool {
	return a == Adjustments{}
}

// Enrichment is the adjustment record produced by the Content Enhancer
type Enrichment struct {
	Adjustments      Adjustments      `json:"adjustments"`
	Confidence       float64          `json:"confidence"`
	Method           EnrichmentMethod `json:"method"`
	ContentType      ContentType      `json:"content_type,omitempty"`
	DomainReputation float64          `json:"domain_reputation"`
	URLPatternScore  float64          `json:"url_pattern_score"`
	QualitySignals   []string         `json:"quality_signals,omitempty"`
	WordCount        int              `json:"word_count,omitempty"`
	ReadingMinutes   int              `json:"reading_minutes,omitempty"`
	Error            string           `json:"error,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

// NeutralEnrichment is the zero-adjustment record used when enrichment
// could not run or was short-circuited
func NeutralEnrichment(method EnrichmentMethod, errMsg string, now time.Time) Enrichment {
	return Enrichment{
		Confidence: 0.1,
		Method:     method,
		Error:      errMsg,
		Timestamp:  now,
	}
}
