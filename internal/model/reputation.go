package model

import "time"

// ReputationEntry is the cached reputation of one bare domain
type ReputationEntry struct {
	Score            float64   `json:"score"`     // [-1, 1]
	Timestamp        time.Time `json:"timestamp"` // last computed or updated
	InteractionCount int       `json:"interaction_count"`

	// Drift is the accumulated EOQ feedback, kept across recomputation
	Drift float64 `json:"drift,omitempty"`
}

// ScoreSample is one EOQ total observed for a domain
type ScoreSample struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// InteractionHistory is the accumulated user feedback for one domain
type InteractionHistory struct {
	Clicks           int           `json:"clicks"`
	TimeSpentSeconds float64       `json:"time_spent_seconds"`
	Returns          int           `json:"returns"`
	LastVisit        time.Time     `json:"last_visit,omitempty"`
	RecentEOQ        []ScoreSample `json:"recent_eoq,omitempty"` // capped, oldest dropped
	UpdatedAt        time.Time     `json:"updated_at"`
}

// InteractionKind names a user interaction signal
type InteractionKind string

const (
	InteractionClick     InteractionKind = "click"
	InteractionTimeSpent InteractionKind = "time_spent"
	InteractionReturn    InteractionKind = "return"
	InteractionEOQScore  InteractionKind = "eoq_score"
)

// ReputationStats summarizes the reputation store
type ReputationStats struct {
	TotalDomains        int     `json:"total_domains"`
	HighReputation      int     `json:"high_reputation"` // > 0.3
	LowReputation       int     `json:"low_reputation"`  // < -0.3
	Neutral             int     `json:"neutral"`
	AverageScore        float64 `json:"average_score"`
	TrackedInteractions int     `json:"tracked_interactions"`
}

// ReputationExport is the portable form of the reputation store
type ReputationExport struct {
	Reputations  map[string]ReputationEntry    `json:"reputations"`
	Interactions map[string]InteractionHistory `json:"interactions"`
	ExportedAt   time.Time                     `json:"exported_at"`
}
