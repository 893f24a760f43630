package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/store"
)

// storeRecorder persists fallback events against a run and keeps an
// in-memory copy for the run result. Safe for concurrent use.
type storeRecorder struct {
	store store.Store
	runID string

	mu     sync.Mutex
	events []model.FallbackEvent
}

func newStoreRecorder(st store.Store, runID string) *storeRecorder {
	return &storeRecorder{store: st, runID: runID}
}

// Record implements planner.FallbackRecorder. Persistence failures are
// logged, not propagated: a fallback event must never fail the run.
func (r *storeRecorder) Record(ctx context.Context, ev model.FallbackEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	if err := r.store.RecordFallback(ctx, r.runID, ev); err != nil {
		zap.L().Warn("pipeline: failed to persist fallback event",
			zap.String("run_id", r.runID),
			zap.String("component", ev.Component),
			zap.Error(err),
		)
	}
}

// Events returns a copy of all recorded events in order.
func (r *storeRecorder) Events() []model.FallbackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.FallbackEvent, len(r.events))
	copy(out, r.events)
	return out
}
