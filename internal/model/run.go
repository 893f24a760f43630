package model

import "time"

// RunStatus tracks pipeline run lifecycle.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusProposing   RunStatus = "proposing"
	RunStatusReconciling RunStatus = "reconciling"
	RunStatusStructuring RunStatus = "structuring"
	RunStatusExpanding   RunStatus = "expanding"
	RunStatusValidating  RunStatus = "validating"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run is a single planning pipeline execution.
type Run struct {
	ID        string         `json:"id"`
	Topic     string         `json:"topic"`
	Vertical  string         `json:"vertical"`
	Status    RunStatus      `json:"status"`
	Result    *RunResult     `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PhaseStatus tracks individual phase lifecycle.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// RunPhase is a persisted phase record.
type RunPhase struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    PhaseStatus `json:"status"`
	StartedAt time.Time   `json:"started_at"`
}

// PhaseResult captures the outcome of a single pipeline phase.
type PhaseResult struct {
	Name       string         `json:"name"`
	Status     PhaseStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	TokenUsage TokenUsage     `json:"token_usage,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TokenUsage tracks LLM token consumption across calls.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Add accumulates usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// RunResult is the persisted final outcome of a run.
type RunResult struct {
	Plan        *VideoPlan      `json:"plan,omitempty"`
	Phases      []PhaseResult   `json:"phases"`
	Fallbacks   []FallbackEvent `json:"fallbacks,omitempty"`
	TotalTokens int             `json:"total_tokens"`
	TotalCost   float64         `json:"total_cost_usd"`
}
