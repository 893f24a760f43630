package planner

import (
	"context"
	"fmt"
	"math"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const monetizationQATask = `Audit this video plan's monetization soundness: does the duration carry enough ad inventory for the vertical's CPM, does the CTA placement fit the format, and is the monetization path consistent end to end?

Return a valid JSON object:
{"passed": <bool>, "score": <0.0-1.0>, "findings": ["<finding>", ...], "reasoning": "<brief>"}`

// MonetizationQA audits a finished plan against the Timeline's economics.
// Downstream Timeline consumer; never returns an error.
type MonetizationQA struct {
	gen Generator
	rec FallbackRecorder
}

// NewMonetizationQA creates a monetization QA agent.
func NewMonetizationQA(gen Generator, rec FallbackRecorder) *MonetizationQA {
	return &MonetizationQA{gen: gen, rec: rec}
}

// Audit reviews the plan's monetization coherence.
func (q *MonetizationQA) Audit(ctx context.Context, tl model.Timeline, ep model.EditorialProposal, cta model.CTAPlan, ws model.Workspace) (model.MonetizationAudit, model.TokenUsage) {
	genCtx := fmt.Sprintf("Timeline: %ds %s (%s)\nCPM baseline: %.2f\nEditorial path: %s\nCTA: %s at %ds via %s",
		tl.ReconciledDuration, tl.FormatType, tl.AspectRatio, ws.CPMBaseline,
		ep.MonetizationPath, cta.Placement, cta.AtSeconds, cta.MonetizationPath)

	text, usage, err := q.gen.Generate(ctx, GenRequest{
		Role:       "monetization auditor",
		Task:       monetizationQATask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		recordFallback(ctx, q.rec, "monetization_qa", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityLow)
		return q.fallback(tl, ep, cta), usage
	}

	var raw struct {
		Passed    bool     `json:"passed"`
		Score     float64  `json:"score"`
		Findings  []string `json:"findings"`
		Reasoning string   `json:"reasoning"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, q.rec, "monetization_qa", model.FallbackDeterministic,
			"unparseable response", model.SeverityLow)
		return q.fallback(tl, ep, cta), usage
	}

	return model.MonetizationAudit{
		Passed:    raw.Passed,
		Score:     clampScore(raw.Score),
		Findings:  raw.Findings,
		Reasoning: raw.Reasoning,
	}, usage
}

// fallback audits deterministically: path consistency and CTA placement
// inside the timeline.
func (q *MonetizationQA) fallback(tl model.Timeline, ep model.EditorialProposal, cta model.CTAPlan) model.MonetizationAudit {
	var findings []string
	score := 1.0

	if cta.MonetizationPath != ep.MonetizationPath {
		findings = append(findings, fmt.Sprintf("cta path %s differs from editorial path %s", cta.MonetizationPath, ep.MonetizationPath))
		score -= 0.3
	}
	if cta.AtSeconds < 0 || cta.AtSeconds > tl.ReconciledDuration {
		findings = append(findings, "cta placement outside timeline")
		score -= 0.4
	}
	if tl.FormatType == model.FormatShort && cta.Placement == "midroll" {
		findings = append(findings, "midroll cta in a short")
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	return model.MonetizationAudit{
		Passed:    len(findings) == 0,
		Score:     score,
		Findings:  findings,
		Reasoning: "deterministic consistency audit",
	}
}

// FormatConsistencyValidator runs deterministic checks of the narrative
// plan against the authoritative Timeline. Purely computational: no LLM.
type FormatConsistencyValidator struct{}

// Validate checks the plan's internal consistency with the Timeline.
func (FormatConsistencyValidator) Validate(tl model.Timeline, depth model.ContentDepthStrategy, arc model.NarrativeArc) model.FormatConsistencyReport {
	var checks []model.FormatCheck

	check := func(name string, passed bool, details string) {
		if passed {
			details = ""
		}
		checks = append(checks, model.FormatCheck{Name: name, Passed: passed, Details: details})
	}

	check("aspect_ratio_derived", tl.AspectRatio == aspectRatioFor(tl.FormatType, tl.ReconciledDuration),
		fmt.Sprintf("aspect ratio %s does not match %s/%ds", tl.AspectRatio, tl.FormatType, tl.ReconciledDuration))

	check("duration_in_window",
		tl.ReconciledDuration >= MinDurationSeconds && tl.ReconciledDuration <= MaxDurationSeconds,
		fmt.Sprintf("duration %ds outside [%d,%d]", tl.ReconciledDuration, MinDurationSeconds, MaxDurationSeconds))

	check("bullet_bounds",
		depth.RecommendedBullets >= minBullets && depth.RecommendedBullets <= maxBullets,
		fmt.Sprintf("bullet count %d outside [%d,%d]", depth.RecommendedBullets, minBullets, maxBullets))

	check("bullet_lengths_aligned",
		len(depth.TimePerBullet) == depth.RecommendedBullets && len(depth.DepthScores) == depth.RecommendedBullets,
		fmt.Sprintf("time_per_bullet=%d depth_scores=%d bullets=%d", len(depth.TimePerBullet), len(depth.DepthScores), depth.RecommendedBullets))

	actSum := 0
	for _, act := range arc.Acts {
		actSum += act.DurationSeconds
	}
	actDrift := math.Abs(float64(actSum-tl.ReconciledDuration)) / float64(tl.ReconciledDuration) * 100
	check("act_durations_match_timeline", actDrift <= 10,
		fmt.Sprintf("act durations sum to %ds vs timeline %ds (%.1f%% drift)", actSum, tl.ReconciledDuration, actDrift))

	wordDiv := wordDivergencePct(arc.FullVoiceover, targetWordCount(tl.ReconciledDuration))
	check("voiceover_word_budget", wordDiv < 2*DivergenceTolerancePct,
		fmt.Sprintf("voiceover diverges %.1f%% from word budget", wordDiv))

	consistent := true
	for _, c := range checks {
		if !c.Passed {
			consistent = false
			break
		}
	}
	return model.FormatConsistencyReport{Consistent: consistent, Checks: checks}
}
