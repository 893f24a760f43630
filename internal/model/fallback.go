package model

import "time"

// FallbackType distinguishes how a component degraded.
type FallbackType string

const (
	// FallbackDeterministic means the component discarded the AI path
	// entirely and used its deterministic fallback.
	FallbackDeterministic FallbackType = "deterministic_fallback"
	// FallbackBestEffort means the component kept an AI result that did
	// not meet its quality threshold.
	FallbackBestEffort FallbackType = "best_effort_ai"
)

// FallbackSeverity tags the downstream impact of a degraded path.
type FallbackSeverity string

const (
	SeverityLow    FallbackSeverity = "low"
	SeverityMedium FallbackSeverity = "medium"
	SeverityHigh   FallbackSeverity = "high"
)

// FallbackEvent is the structured record emitted on every degraded path.
// These are the only user-visible trace of absorbed failures, so each
// event must carry enough detail to be queryable after the fact.
type FallbackEvent struct {
	Component string           `json:"component"`
	Type      FallbackType     `json:"fallback_type"`
	Reason    string           `json:"reason"`
	Severity  FallbackSeverity `json:"severity"`
	At        time.Time        `json:"at"`
}
