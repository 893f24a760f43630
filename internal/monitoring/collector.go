// Package monitoring gathers run, fallback, and review-queue health metrics
// and raises webhook alerts when they cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Planning run metrics (within lookback window).
	RunsTotal      int     `json:"runs_total"`
	RunsComplete   int     `json:"runs_complete"`
	RunsFailed     int     `json:"runs_failed"`
	RunsInProgress int     `json:"runs_in_progress"`
	RunFailRate    float64 `json:"run_fail_rate"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
	AvgAuditScore  float64 `json:"avg_audit_score"`
	AvgTokens      int     `json:"avg_tokens"`

	// Fallback metrics. The planning agents absorb failures instead of
	// surfacing them, so fallback volume is the primary quality signal.
	FallbacksTotal      int            `json:"fallbacks_total"`
	FallbacksPerRun     float64        `json:"fallbacks_per_run"`
	FallbacksBySeverity map[string]int `json:"fallbacks_by_severity"`
	FallbacksByType     map[string]int `json:"fallbacks_by_type"`

	// Outreach review queue.
	DraftsPending  int `json:"drafts_pending"`
	DraftsApproved int `json:"drafts_approved"`
	DraftsRejected int `json:"drafts_rejected"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of system metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours:       lookbackHours,
		CollectedAt:         time.Now().UTC(),
		FallbacksBySeverity: map[string]int{},
		FallbacksByType:     map[string]int{},
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalScore float64
	var totalTokens, scoredRuns int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsInProgress++
		}
		if r.Result != nil {
			snap.TotalCostUSD += r.Result.TotalCost
			totalTokens += r.Result.TotalTokens
			if r.Result.Plan != nil {
				totalScore += r.Result.Plan.Audit.Score
				scoredRuns++
			}
		}

		events, err := c.store.ListFallbacks(ctx, r.ID)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list fallbacks")
		}
		snap.FallbacksTotal += len(events)
		for _, ev := range events {
			snap.FallbacksBySeverity[string(ev.Severity)]++
			snap.FallbacksByType[string(ev.Type)]++
		}
	}

	finished := snap.RunsComplete + snap.RunsFailed
	if finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsTotal > 0 {
		snap.FallbacksPerRun = float64(snap.FallbacksTotal) / float64(snap.RunsTotal)
		snap.AvgTokens = totalTokens / snap.RunsTotal
	}
	if scoredRuns > 0 {
		snap.AvgAuditScore = totalScore / float64(scoredRuns)
	}

	for _, status := range []model.ReviewStatus{model.ReviewPending, model.ReviewApproved, model.ReviewRejected} {
		drafts, err := c.store.ListDrafts(ctx, status, 10000)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list drafts")
		}
		switch status {
		case model.ReviewPending:
			snap.DraftsPending = len(drafts)
		case model.ReviewApproved:
			snap.DraftsApproved = len(drafts)
		case model.ReviewRejected:
			snap.DraftsRejected = len(drafts)
		}
	}

	return snap, nil
}
