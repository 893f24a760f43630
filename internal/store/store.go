// Package store persists planning runs, their phases, fallback events,
// and outreach email drafts. Two backends: SQLite for local single-user
// work, Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/sells-group/studio-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Vertical     string          `json:"vertical,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the planning pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, topic, vertical string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Fallback events
	RecordFallback(ctx context.Context, runID string, ev model.FallbackEvent) error
	ListFallbacks(ctx context.Context, runID string) ([]model.FallbackEvent, error)

	// Outreach drafts
	SaveDraft(ctx context.Context, draft *model.EmailDraft) error
	UpdateDraftStatus(ctx context.Context, draftID string, status model.ReviewStatus, reviewPageID string) error
	GetDraft(ctx context.Context, draftID string) (*model.EmailDraft, error)
	ListDrafts(ctx context.Context, status model.ReviewStatus, limit int) ([]model.EmailDraft, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
