package domain

import "time"

// ConfidenceLevel buckets a confidence score into an actionable band.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"   // >= 0.9: proceed
	ConfidenceMedium ConfidenceLevel = "medium" // >= 0.7: keep investigating
	ConfidenceLow    ConfidenceLevel = "low"    // < 0.7: stop
)

// ConfidenceThresholds used to bucket scores.
const (
	ConfidenceHighThreshold   = 0.9
	ConfidenceMediumThreshold = 0.7
)

// LevelForScore maps a score in [0,1] to its confidence band.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= ConfidenceHighThreshold:
		return ConfidenceHigh
	case score >= ConfidenceMediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceCheck is the outcome of a single pre-implementation check.
type ConfidenceCheck struct {
	Name    string  `json:"name"`
	Passed  bool    `json:"passed"`
	Weight  float64 `json:"weight"`
	Message string  `json:"message"`
}

// ConfidenceReport is the result of a full confidence assessment.
type ConfidenceReport struct {
	Score          float64           `json:"score"`
	Level          ConfidenceLevel   `json:"level"`
	Checks         []ConfidenceCheck `json:"checks"`
	Recommendation string            `json:"recommendation"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// ResearchFinding is one memory surfaced during deep research.
type ResearchFinding struct {
	MemoryID string  `json:"memory_id"`
	Query    string  `json:"query"`
	Snippet  string  `json:"snippet"`
	Score    float32 `json:"score"`
}

// ResearchReport summarizes one airis_deep_research run.
type ResearchReport struct {
	Question   string            `json:"question"`
	Project    string            `json:"project"`
	Iterations int               `json:"iterations"`
	Confidence float64           `json:"confidence"`
	Level      ConfidenceLevel   `json:"level"`
	Findings   []ResearchFinding `json:"findings"`
	Markdown   string            `json:"markdown"`
	ArchiveKey string            `json:"archive_key,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}
