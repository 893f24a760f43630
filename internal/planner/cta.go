package planner

import (
	"context"
	"fmt"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const ctaTask = `Plan the call-to-action for this video given its reconciled timeline and monetization path.

Return a valid JSON object:
{"placement": "outro|midroll|pinned_comment", "at_seconds": <int>, "script": "<spoken CTA text>", "monetization_path": "lead_magnet|playlist|comment_trigger|external", "reasoning": "<brief>"}`

// CTAStrategist plans the call-to-action from the authoritative Timeline.
// Downstream consumer of the reconciliation output; not part of the
// arbitration loop. Never returns an error.
type CTAStrategist struct {
	gen Generator
	rec FallbackRecorder
}

// NewCTAStrategist creates a CTA strategist.
func NewCTAStrategist(gen Generator, rec FallbackRecorder) *CTAStrategist {
	return &CTAStrategist{gen: gen, rec: rec}
}

// Plan returns a CTA plan anchored inside the Timeline.
func (s *CTAStrategist) Plan(ctx context.Context, topic string, tl model.Timeline, ep model.EditorialProposal, ws model.Workspace) (model.CTAPlan, model.TokenUsage) {
	genCtx := fmt.Sprintf("Topic: %s\nTimeline: %ds, %s\nMonetization path: %s\nSegment breakdown: %v",
		topic, tl.ReconciledDuration, tl.FormatType, ep.MonetizationPath, tl.DurationBreakdown)

	text, usage, err := s.gen.Generate(ctx, GenRequest{
		Role:       "cta strategist",
		Task:       ctaTask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		recordFallback(ctx, s.rec, "cta_strategist", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityLow)
		return s.fallback(tl, ep), usage
	}

	var raw struct {
		Placement        string `json:"placement"`
		AtSeconds        int    `json:"at_seconds"`
		Script           string `json:"script"`
		MonetizationPath string `json:"monetization_path"`
		Reasoning        string `json:"reasoning"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, s.rec, "cta_strategist", model.FallbackDeterministic,
			"unparseable response", model.SeverityLow)
		return s.fallback(tl, ep), usage
	}

	at := raw.AtSeconds
	if at < 0 {
		at = 0
	}
	if at > tl.ReconciledDuration {
		at = tl.ReconciledDuration
	}

	return model.CTAPlan{
		Placement:        llmjson.RepairEnum(raw.Placement, []string{"outro", "midroll", "pinned_comment"}, "outro"),
		AtSeconds:        at,
		Script:           raw.Script,
		MonetizationPath: model.MonetizationPath(llmjson.RepairEnum(raw.MonetizationPath, pathNames(), string(ep.MonetizationPath))),
		Reasoning:        raw.Reasoning,
	}, usage
}

// fallback places a templated CTA in the editorial breakdown's cta window,
// defaulting to the final 10% of the timeline.
func (s *CTAStrategist) fallback(tl model.Timeline, ep model.EditorialProposal) model.CTAPlan {
	ctaSecs := ep.DurationBreakdown["cta"]
	if ctaSecs <= 0 || ctaSecs >= tl.ReconciledDuration {
		ctaSecs = tl.ReconciledDuration * 10 / 100
	}
	path := ep.MonetizationPath
	if path == "" {
		path = model.PathPlaylist
	}
	return model.CTAPlan{
		Placement:        "outro",
		AtSeconds:        tl.ReconciledDuration - ctaSecs,
		Script:           "If this was useful, the next video in the series goes deeper.",
		MonetizationPath: path,
		Reasoning:        "deterministic outro placement",
	}
}
