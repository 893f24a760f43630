package planner

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const arbitrationTask = `Two independent strategists proposed conflicting durations for the same video. Arbitrate between them and decide one final duration.

Weigh monetization economics (the duration strategist's CPM reasoning) against editorial coherence (the editorial strategist's serial concept and segment breakdown). A compromise duration between the two bids is allowed.

Return a valid JSON object:
{"final_duration": <int seconds>, "format_type": "short|mid|long", "reasoning": "<brief>", "arbitration_source": "editorial_strategist|duration_strategist|compromise", "editorial_weight": <0.0-1.0>, "duration_weight": <0.0-1.0>}
The two weights must sum to 1.0.`

// Fast-path weights when the proposals are close enough to skip
// arbitration: monetization priority, duration strategist wins.
const (
	fastPathEditorialWeight = 0.3
	fastPathDurationWeight  = 0.7
)

// FormatReconciler produces exactly one Timeline from the two duration
// proposals. It never returns an error: arbitration failures fall back to
// the duration strategist's proposal.
type FormatReconciler struct {
	gen Generator
	rec FallbackRecorder
}

// NewFormatReconciler creates a format reconciler.
func NewFormatReconciler(gen Generator, rec FallbackRecorder) *FormatReconciler {
	return &FormatReconciler{gen: gen, rec: rec}
}

// Reconcile arbitrates the two proposals into the single Timeline all
// downstream duration-dependent work treats as authoritative.
func (r *FormatReconciler) Reconcile(ctx context.Context, topic string, ws model.Workspace, ep model.EditorialProposal, dp model.DurationProposal) (model.Timeline, model.TokenUsage) {
	divergence := DivergencePct(ep.DurationTarget, dp.TargetDurationSeconds)

	// Fast path: proposals close enough that monetization priority wins
	// outright, no LLM call.
	if divergence < DivergenceTolerancePct {
		zap.L().Info("reconcile: divergence below tolerance, accepting duration strategist",
			zap.Float64("divergence_pct", divergence),
			zap.Int("editorial", ep.DurationTarget),
			zap.Int("duration", dp.TargetDurationSeconds),
		)
		return r.timelineFrom(dp, ep,
			model.SourceDurationStrategist,
			fastPathEditorialWeight, fastPathDurationWeight,
			fmt.Sprintf("divergence %.1f%% below %.0f%% tolerance; monetization-priority proposal accepted", divergence, DivergenceTolerancePct),
		), model.TokenUsage{}
	}

	genCtx := fmt.Sprintf(`Topic: %s
CPM baseline: %.2f USD

Editorial strategist proposal:
- duration: %ds (breakdown %v)
- serie concept: %s, format: %s, angle: %s, monetization path: %s
- reasoning: %s

Duration strategist proposal:
- duration: %ds (%s tier)
- content depth score: %.2f, viral potential score: %.2f
- monetization strategy: %s
- reasoning: %s

Divergence: %.1f%%`,
		topic, ws.CPMBaseline,
		ep.DurationTarget, ep.DurationBreakdown, ep.SerieConcept, ep.Format, ep.Angle, ep.MonetizationPath, ep.ReasoningSummary,
		dp.TargetDurationSeconds, dp.FormatType, dp.ContentDepthScore, dp.ViralPotentialScore, dp.MonetizationStrategy, dp.Reasoning,
		divergence,
	)

	text, usage, err := r.gen.Generate(ctx, GenRequest{
		Role:       "format reconciler",
		Task:       arbitrationTask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		recordFallback(ctx, r.rec, "format_reconciler", model.FallbackDeterministic,
			fmt.Sprintf("arbitration generate: %v", err), model.SeverityMedium)
		return r.fallbackTimeline(dp, ep), usage
	}

	var raw struct {
		FinalDuration     int     `json:"final_duration"`
		FormatType        string  `json:"format_type"`
		Reasoning         string  `json:"reasoning"`
		ArbitrationSource string  `json:"arbitration_source"`
		EditorialWeight   float64 `json:"editorial_weight"`
		DurationWeight    float64 `json:"duration_weight"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, r.rec, "format_reconciler", model.FallbackDeterministic,
			"unparseable arbitration response", model.SeverityMedium)
		return r.fallbackTimeline(dp, ep), usage
	}

	// Field defaults for missing keys.
	if raw.FinalDuration <= 0 {
		raw.FinalDuration = dp.TargetDurationSeconds
	}
	duration := clampDuration(raw.FinalDuration)

	source := model.ArbitrationSource(llmjson.RepairEnum(raw.ArbitrationSource,
		[]string{
			string(model.SourceEditorialStrategist),
			string(model.SourceDurationStrategist),
			string(model.SourceCompromise),
		},
		string(model.SourceCompromise)))

	editW, durW := normalizeWeights(raw.EditorialWeight, raw.DurationWeight)

	format := model.FormatType(llmjson.RepairEnum(raw.FormatType,
		formatNames(), string(formatForDuration(duration))))

	tl := model.Timeline{
		ReconciledDuration:    duration,
		FormatType:            format,
		AspectRatio:           aspectRatioFor(format, duration),
		ArbitrationSource:     source,
		EditorialWeight:       editW,
		DurationWeight:        durW,
		ArbitrationReasoning:  raw.Reasoning,
		EditorialDurationOrig: ep.DurationTarget,
		DurationStrategyOrig:  dp.TargetDurationSeconds,
	}
	if source == model.SourceEditorialStrategist {
		tl.DurationBreakdown = ep.DurationBreakdown
	}

	zap.L().Info("reconcile: arbitration complete",
		zap.Float64("divergence_pct", divergence),
		zap.Int("final_duration", duration),
		zap.String("source", string(source)),
		zap.Float64("editorial_weight", editW),
		zap.Float64("duration_weight", durW),
	)
	return tl, usage
}

// timelineFrom builds a Timeline around the duration strategist's winning
// proposal, embedding both originals for audit.
func (r *FormatReconciler) timelineFrom(dp model.DurationProposal, ep model.EditorialProposal, source model.ArbitrationSource, editW, durW float64, reasoning string) model.Timeline {
	duration := clampDuration(dp.TargetDurationSeconds)
	format := dp.FormatType
	if format == "" {
		format = formatForDuration(duration)
	}
	return model.Timeline{
		ReconciledDuration:    duration,
		FormatType:            format,
		AspectRatio:           aspectRatioFor(format, duration),
		ArbitrationSource:     source,
		EditorialWeight:       editW,
		DurationWeight:        durW,
		ArbitrationReasoning:  reasoning,
		EditorialDurationOrig: ep.DurationTarget,
		DurationStrategyOrig:  dp.TargetDurationSeconds,
	}
}

// fallbackTimeline is the guaranteed exit when arbitration fails: the
// duration strategist's proposal wins with full weight.
func (r *FormatReconciler) fallbackTimeline(dp model.DurationProposal, ep model.EditorialProposal) model.Timeline {
	return r.timelineFrom(dp, ep,
		model.SourceDurationFallback,
		0.0, 1.0,
		"arbitration unavailable; deterministic fallback to duration strategist",
	)
}

// normalizeWeights enforces editorial+duration ≈ 1.0. Weights whose sum is
// outside 1.0 ± 0.01 are divided by their sum; a zero sum yields an even
// split.
func normalizeWeights(editW, durW float64) (float64, float64) {
	if editW < 0 {
		editW = 0
	}
	if durW < 0 {
		durW = 0
	}
	sum := editW + durW
	if sum == 0 {
		return 0.5, 0.5
	}
	if math.Abs(sum-1.0) > 0.01 {
		zap.L().Warn("reconcile: arbitration weights do not sum to 1.0, normalizing",
			zap.Float64("editorial_weight", editW),
			zap.Float64("duration_weight", durW),
		)
		return editW / sum, durW / sum
	}
	return editW, durW
}
