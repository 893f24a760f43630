package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/studio-cli/internal/model"
)

func TestMonetizationAudit_ValidResponse(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"passed": true, "score": 0.9, "findings": [], "reasoning": "coherent path"}`,
			model.TokenUsage{InputTokens: 90, OutputTokens: 40}, nil).Once()
	q := NewMonetizationQA(gen, &captureRecorder{})

	cta := model.CTAPlan{Placement: "outro", AtSeconds: 280, MonetizationPath: model.PathLeadMagnet}
	audit, usage := q.Audit(context.Background(), midTimeline(), editorialProposal(240), cta, testWorkspace())

	assert.True(t, audit.Passed)
	assert.InDelta(t, 0.9, audit.Score, 0.001)
	assert.Equal(t, 90, usage.InputTokens)
}

func TestMonetizationAudit_DeterministicFallbackScoring(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", model.TokenUsage{}, errors.New("transport down"))
	rec := &captureRecorder{}
	q := NewMonetizationQA(gen, rec)

	// Consistent plan: passes with a perfect score.
	ep := editorialProposal(240)
	clean := model.CTAPlan{Placement: "outro", AtSeconds: 280, MonetizationPath: ep.MonetizationPath}
	audit, _ := q.Audit(context.Background(), midTimeline(), ep, clean, testWorkspace())
	assert.True(t, audit.Passed)
	assert.InDelta(t, 1.0, audit.Score, 0.001)

	// Path mismatch plus out-of-timeline placement: -0.3 and -0.4.
	dirty := model.CTAPlan{Placement: "outro", AtSeconds: 999, MonetizationPath: model.PathExternal}
	audit, _ = q.Audit(context.Background(), midTimeline(), ep, dirty, testWorkspace())
	assert.False(t, audit.Passed)
	assert.InDelta(t, 0.3, audit.Score, 0.001)
	assert.Len(t, audit.Findings, 2)

	// Midroll in a short.
	short := model.Timeline{ReconciledDuration: 45, FormatType: model.FormatShort, AspectRatio: "9:16"}
	midroll := model.CTAPlan{Placement: "midroll", AtSeconds: 20, MonetizationPath: ep.MonetizationPath}
	audit, _ = q.Audit(context.Background(), short, ep, midroll, testWorkspace())
	assert.False(t, audit.Passed)
	assert.InDelta(t, 0.8, audit.Score, 0.001)

	assert.Len(t, rec.byComponent("monetization_qa"), 3)
}

func TestCTAPlan_ValidResponse(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"placement": "midroll", "at_seconds": 150, "script": "Grab the free checklist below.", "monetization_path": "lead_magnet", "reasoning": "peak retention point"}`,
			model.TokenUsage{}, nil).Once()
	s := NewCTAStrategist(gen, &captureRecorder{})

	cta, _ := s.Plan(context.Background(), "topic", midTimeline(), editorialProposal(240), testWorkspace())

	assert.Equal(t, "midroll", cta.Placement)
	assert.Equal(t, 150, cta.AtSeconds)
	assert.Equal(t, model.PathLeadMagnet, cta.MonetizationPath)
}

func TestCTAPlan_PlacementClampedToTimeline(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"placement": "outro", "at_seconds": 5000, "monetization_path": "playlist"}`,
			model.TokenUsage{}, nil).Once()
	s := NewCTAStrategist(gen, &captureRecorder{})

	cta, _ := s.Plan(context.Background(), "topic", midTimeline(), editorialProposal(240), testWorkspace())
	assert.Equal(t, 300, cta.AtSeconds)
}

func TestCTAPlan_BadPathDefaultsToEditorial(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(`{"placement": "end card", "at_seconds": 290, "monetization_path": "merch table"}`,
			model.TokenUsage{}, nil).Once()
	s := NewCTAStrategist(gen, &captureRecorder{})

	ep := editorialProposal(240) // lead_magnet path
	cta, _ := s.Plan(context.Background(), "topic", midTimeline(), ep, testWorkspace())

	assert.Equal(t, "outro", cta.Placement)
	assert.Equal(t, model.PathLeadMagnet, cta.MonetizationPath)
}

func TestCTAPlan_FallbackUsesBreakdownWindow(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", model.TokenUsage{}, errors.New("transport down")).Once()
	rec := &captureRecorder{}
	s := NewCTAStrategist(gen, rec)

	ep := editorialProposal(240) // breakdown cta = 24s
	cta, _ := s.Plan(context.Background(), "topic", midTimeline(), ep, testWorkspace())

	assert.Equal(t, "outro", cta.Placement)
	assert.Equal(t, 276, cta.AtSeconds)
	assert.Equal(t, ep.MonetizationPath, cta.MonetizationPath)
	assert.Len(t, rec.byComponent("cta_strategist"), 1)
}

func TestFormatConsistency_CleanPlan(t *testing.T) {
	tl := midTimeline()
	depth := model.ContentDepthStrategy{
		RecommendedBullets: 4,
		TimePerBullet:      []int{60, 60, 60, 60},
		DepthScores:        []float64{0.6, 0.7, 0.8, 0.6},
	}
	arc := arcWithWords(740)

	report := FormatConsistencyValidator{}.Validate(tl, depth, arc)

	assert.True(t, report.Consistent)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, c.Name)
		assert.Empty(t, c.Details, c.Name)
	}
	assert.Len(t, report.Checks, 6)
}

func TestFormatConsistency_Violations(t *testing.T) {
	tl := model.Timeline{
		ReconciledDuration: 300,
		FormatType:         model.FormatMid,
		AspectRatio:        "9:16", // wrong for a 300s mid
	}
	depth := model.ContentDepthStrategy{
		RecommendedBullets: 1, // below floor
		TimePerBullet:      []int{60, 60},
		DepthScores:        []float64{0.7},
	}
	// Acts drift 20% from the timeline and the voiceover is far under budget.
	arc := model.NarrativeArc{Acts: []model.NarrativeAct{
		{ActName: "Only", DurationSeconds: 240, Voiceover: words(100)},
	}}
	finalizeArc(&arc)

	report := FormatConsistencyValidator{}.Validate(tl, depth, arc)

	assert.False(t, report.Consistent)
	failed := map[string]bool{}
	for _, c := range report.Checks {
		if !c.Passed {
			failed[c.Name] = true
			assert.NotEmpty(t, c.Details, c.Name)
		}
	}
	assert.True(t, failed["aspect_ratio_derived"])
	assert.True(t, failed["bullet_bounds"])
	assert.True(t, failed["bullet_lengths_aligned"])
	assert.True(t, failed["act_durations_match_timeline"])
	assert.True(t, failed["voiceover_word_budget"])
	assert.False(t, failed["duration_in_window"])
}
