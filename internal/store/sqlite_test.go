package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studio-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "compound interest myths", "personal_finance")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusProposing))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusProposing, got.Status)
	assert.Equal(t, "compound interest myths", got.Topic)
	assert.Equal(t, "personal_finance", got.Vertical)
	assert.Nil(t, got.Result)

	result := &model.RunResult{
		Plan: &model.VideoPlan{
			Timeline: model.Timeline{ReconciledDuration: 420, FormatType: model.FormatMid},
		},
		TotalTokens: 4200,
		TotalCost:   0.18,
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 420, got.Result.Plan.Timeline.ReconciledDuration)
	assert.Equal(t, 4200, got.Result.TotalTokens)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateStatus_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, "topic a", "personal_finance")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "topic b", "personal_finance")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "topic c", "fitness")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, r1.ID, model.RunStatusComplete))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byVertical, err := s.ListRuns(ctx, RunFilter{Vertical: "personal_finance"})
	require.NoError(t, err)
	assert.Len(t, byVertical, 2)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, r1.ID, byStatus[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_Phases(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "topic", "personal_finance")
	require.NoError(t, err)

	phase, err := s.CreatePhase(ctx, run.ID, "3_reconcile")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusRunning, phase.Status)

	err = s.CompletePhase(ctx, phase.ID, &model.PhaseResult{
		Name:     "3_reconcile",
		Status:   model.PhaseStatusComplete,
		Duration: 1250,
		TokenUsage: model.TokenUsage{
			InputTokens:  200,
			OutputTokens: 80,
		},
	})
	require.NoError(t, err)

	err = s.CompletePhase(ctx, "missing", &model.PhaseResult{Status: model.PhaseStatusFailed})
	require.Error(t, err)
}

func TestSQLite_FallbackEvents(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "topic", "personal_finance")
	require.NoError(t, err)

	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordFallback(ctx, run.ID, model.FallbackEvent{
		Component: "format_reconciler",
		Type:      model.FallbackDeterministic,
		Reason:    "arbitration generate: transport down",
		Severity:  model.SeverityMedium,
		At:        at,
	}))
	require.NoError(t, s.RecordFallback(ctx, run.ID, model.FallbackEvent{
		Component: "narrative_architect",
		Type:      model.FallbackBestEffort,
		Reason:    "expansion did not converge",
		Severity:  model.SeverityLow,
		At:        at.Add(time.Minute),
	}))

	events, err := s.ListFallbacks(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "format_reconciler", events[0].Component)
	assert.Equal(t, model.FallbackDeterministic, events[0].Type)
	assert.Equal(t, model.FallbackBestEffort, events[1].Type)

	none, err := s.ListFallbacks(ctx, "other-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_DraftLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	draft := &model.EmailDraft{
		Article: model.Article{
			URL:         "https://example.com/fire-movement",
			Title:       "The FIRE movement is changing",
			Publication: "Example Finance",
		},
		Fit:     model.ArticleFit{Relevant: true, Score: 0.82, Angle: "early retirement math"},
		Author:  model.AuthorProfile{Name: "Jordan Lee", Beat: "personal finance"},
		Subject: "Loved your FIRE piece",
		Body:    "Hi Jordan, ...",
	}
	require.NoError(t, s.SaveDraft(ctx, draft))
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, model.ReviewPending, draft.Status)

	got, err := s.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loved your FIRE piece", got.Subject)
	assert.Equal(t, "Jordan Lee", got.Author.Name)
	assert.InDelta(t, 0.82, got.Fit.Score, 0.001)

	require.NoError(t, s.UpdateDraftStatus(ctx, draft.ID, model.ReviewApproved, "notion-page-1"))

	got, err = s.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewApproved, got.Status)
	assert.Equal(t, "notion-page-1", got.ReviewPageID)

	// Empty page ID in a later status change keeps the existing one.
	require.NoError(t, s.UpdateDraftStatus(ctx, draft.ID, model.ReviewRejected, ""))
	got, err = s.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, got.Status)
	assert.Equal(t, "notion-page-1", got.ReviewPageID)
}

func TestSQLite_SaveDraft_Upsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	draft := &model.EmailDraft{
		Article: model.Article{URL: "https://example.com/a"},
		Subject: "first subject",
		Body:    "first body",
	}
	require.NoError(t, s.SaveDraft(ctx, draft))

	draft.Subject = "revised subject"
	require.NoError(t, s.SaveDraft(ctx, draft))

	drafts, err := s.ListDrafts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "revised subject", drafts[0].Subject)
}

func TestSQLite_ListDrafts_ByStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i, status := range []model.ReviewStatus{model.ReviewPending, model.ReviewPending, model.ReviewApproved} {
		d := &model.EmailDraft{
			Article: model.Article{URL: "https://example.com/" + string(rune('a'+i))},
			Subject: "s",
			Body:    "b",
			Status:  status,
		}
		require.NoError(t, s.SaveDraft(ctx, d))
	}

	pending, err := s.ListDrafts(ctx, model.ReviewPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := s.ListDrafts(ctx, model.ReviewApproved, 10)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}
