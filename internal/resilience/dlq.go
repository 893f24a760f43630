package resilience

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/studio-cli/internal/model"
)

// transientRetryDelay is how long a transient failure waits before it is
// eligible for redelivery.
const transientRetryDelay = 5 * time.Minute

// DLQEntry is a failed outreach article parked for later retry.
type DLQEntry struct {
	ID           string        `json:"id"`
	Article      model.Article `json:"article"`
	Error        string        `json:"error"`
	ErrorType    string        `json:"error_type"` // "transient" or "permanent"
	FailedStage  string        `json:"failed_stage,omitempty"`
	RetryCount   int           `json:"retry_count"`
	MaxRetries   int           `json:"max_retries"`
	NextRetryAt  time.Time     `json:"next_retry_at"`
	CreatedAt    time.Time     `json:"created_at"`
	LastFailedAt time.Time     `json:"last_failed_at"`
}

// NewDLQEntry parks an article that failed at the given outreach stage.
// Transient failures get a retry slot five minutes out; permanent ones
// stay parked until someone looks at them.
func NewDLQEntry(article model.Article, stage string, err error) *DLQEntry {
	now := time.Now().UTC()
	entry := &DLQEntry{
		ID:           uuid.New().String(),
		Article:      article,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		FailedStage:  stage,
		MaxRetries:   3,
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if entry.ErrorType == "transient" {
		entry.NextRetryAt = now.Add(transientRetryDelay)
	}
	return entry
}

// DLQFilter selects entries when querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry still has retry budget.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError buckets an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
