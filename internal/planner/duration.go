package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const durationTask = `Propose a target duration for a video on the given topic, optimizing for watch-time monetization in this vertical.

Return a valid JSON object:
{"target_duration_seconds": <int>, "format_type": "short|mid|long", "content_depth_score": <0.0-1.0>, "viral_potential_score": <0.0-1.0>, "monetization_strategy": "<one sentence>", "reasoning": "<brief>"}`

// DurationStrategist proposes a target duration and format tier from the
// topic and vertical economics. Leaf component: depends on nothing but the
// generator.
type DurationStrategist struct {
	gen Generator
	rec FallbackRecorder
}

// NewDurationStrategist creates a duration strategist.
func NewDurationStrategist(gen Generator, rec FallbackRecorder) *DurationStrategist {
	return &DurationStrategist{gen: gen, rec: rec}
}

// Propose returns a duration proposal for the topic. Never returns an
// error: LLM or parse failures degrade to a deterministic heuristic based
// on the vertical's CPM baseline.
func (s *DurationStrategist) Propose(ctx context.Context, topic string, ws model.Workspace) (model.DurationProposal, model.TokenUsage) {
	genCtx := fmt.Sprintf("Topic: %s\nVertical: %s\nCPM baseline: %.2f USD", topic, ws.VerticalID, ws.CPMBaseline)

	text, usage, err := s.gen.Generate(ctx, GenRequest{
		Role:       "duration strategist",
		Task:       durationTask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		recordFallback(ctx, s.rec, "duration_strategist", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityMedium)
		return s.fallback(ws), usage
	}

	var raw struct {
		TargetDurationSeconds int     `json:"target_duration_seconds"`
		FormatType            string  `json:"format_type"`
		ContentDepthScore     float64 `json:"content_depth_score"`
		ViralPotentialScore   float64 `json:"viral_potential_score"`
		MonetizationStrategy  string  `json:"monetization_strategy"`
		Reasoning             string  `json:"reasoning"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, s.rec, "duration_strategist", model.FallbackDeterministic,
			"unparseable response", model.SeverityMedium)
		return s.fallback(ws), usage
	}

	duration := clampDuration(raw.TargetDurationSeconds)
	if duration != raw.TargetDurationSeconds {
		zap.L().Warn("duration: proposal outside valid window, clamped",
			zap.Int("proposed", raw.TargetDurationSeconds),
			zap.Int("clamped", duration),
		)
	}

	format := model.FormatType(llmjson.RepairEnum(raw.FormatType,
		formatNames(), string(formatForDuration(duration))))

	return model.DurationProposal{
		TargetDurationSeconds: duration,
		FormatType:            format,
		ContentDepthScore:     clampScore(raw.ContentDepthScore),
		ViralPotentialScore:   clampScore(raw.ViralPotentialScore),
		MonetizationStrategy:  raw.MonetizationStrategy,
		Reasoning:             raw.Reasoning,
	}, usage
}

// fallback is the deterministic proposal used when the AI path fails.
// Higher-CPM verticals sustain longer watch-time formats.
func (s *DurationStrategist) fallback(ws model.Workspace) model.DurationProposal {
	var duration int
	var strategy string
	switch {
	case ws.CPMBaseline >= 10:
		duration = 600
		strategy = "long-form midroll inventory"
	case ws.CPMBaseline >= 4:
		duration = 300
		strategy = "mid-form single preroll"
	default:
		duration = 45
		strategy = "shorts feed reach"
	}
	return model.DurationProposal{
		TargetDurationSeconds: duration,
		FormatType:            formatForDuration(duration),
		ContentDepthScore:     0.5,
		ViralPotentialScore:   0.5,
		MonetizationStrategy:  strategy,
		Reasoning:             "deterministic CPM-bracket heuristic",
	}
}

func formatNames() []string {
	types := model.AllFormatTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
