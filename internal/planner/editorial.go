package planner

import (
	"context"
	"fmt"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const editorialTask = `Decide the editorial strategy for a video on the given topic: serial concept, format, angle, monetization path, and your own independent target duration with a hook/context/insight/cta breakdown.

Return a valid JSON object:
{"duration_target": <int seconds>, "duration_breakdown": {"hook": <int>, "context": <int>, "insight": <int>, "cta": <int>}, "serie_concept": "<name>", "format": "tutorial|analysis|alert|comparison", "angle": "risk|opportunity|education|history", "monetization_path": "lead_magnet|playlist|comment_trigger|external", "reasoning_summary": "<brief>"}`

// EditorialStrategist proposes the editorial treatment of a topic,
// including its own duration bid. Leaf component, independent of the
// duration strategist.
type EditorialStrategist struct {
	gen Generator
	rec FallbackRecorder
}

// NewEditorialStrategist creates an editorial strategist.
func NewEditorialStrategist(gen Generator, rec FallbackRecorder) *EditorialStrategist {
	return &EditorialStrategist{gen: gen, rec: rec}
}

// Propose returns an editorial proposal for the topic. Never returns an
// error; failures degrade to a deterministic default strategy.
func (s *EditorialStrategist) Propose(ctx context.Context, topic string, ws model.Workspace) (model.EditorialProposal, model.TokenUsage) {
	genCtx := fmt.Sprintf("Topic: %s\nVertical: %s\nBrand tone: %s", topic, ws.VerticalID, ws.BrandTone)

	text, usage, err := s.gen.Generate(ctx, GenRequest{
		Role:       "editorial strategist",
		Task:       editorialTask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  768,
	})
	if err != nil {
		recordFallback(ctx, s.rec, "editorial_strategist", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityMedium)
		return s.fallback(), usage
	}

	var raw struct {
		DurationTarget    int            `json:"duration_target"`
		DurationBreakdown map[string]int `json:"duration_breakdown"`
		SerieConcept      string         `json:"serie_concept"`
		Format            string         `json:"format"`
		Angle             string         `json:"angle"`
		MonetizationPath  string         `json:"monetization_path"`
		ReasoningSummary  string         `json:"reasoning_summary"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, s.rec, "editorial_strategist", model.FallbackDeterministic,
			"unparseable response", model.SeverityMedium)
		return s.fallback(), usage
	}

	duration := raw.DurationTarget
	if duration <= 0 {
		duration = 240
	}
	duration = clampDuration(duration)

	breakdown := raw.DurationBreakdown
	if len(breakdown) == 0 {
		breakdown = defaultBreakdown(duration)
	}

	return model.EditorialProposal{
		DurationTarget:    duration,
		DurationBreakdown: breakdown,
		SerieConcept:      raw.SerieConcept,
		Format:            model.EditorialFormat(llmjson.RepairEnum(raw.Format, editorialFormatNames(), string(model.EditorialAnalysis))),
		Angle:             model.EditorialAngle(llmjson.RepairEnum(raw.Angle, angleNames(), string(model.AngleEducation))),
		MonetizationPath:  model.MonetizationPath(llmjson.RepairEnum(raw.MonetizationPath, pathNames(), string(model.PathPlaylist))),
		ReasoningSummary:  raw.ReasoningSummary,
	}, usage
}

// fallback is the deterministic default editorial strategy.
func (s *EditorialStrategist) fallback() model.EditorialProposal {
	const duration = 240
	return model.EditorialProposal{
		DurationTarget:    duration,
		DurationBreakdown: defaultBreakdown(duration),
		SerieConcept:      "standalone",
		Format:            model.EditorialAnalysis,
		Angle:             model.AngleEducation,
		MonetizationPath:  model.PathPlaylist,
		ReasoningSummary:  "deterministic default strategy",
	}
}

// defaultBreakdown splits a duration into the standard 10/30/50/10 segment
// proportions, assigning rounding remainder to the insight segment.
func defaultBreakdown(duration int) map[string]int {
	hook := duration * 10 / 100
	contextSecs := duration * 30 / 100
	cta := duration * 10 / 100
	insight := duration - hook - contextSecs - cta
	return map[string]int{
		"hook":    hook,
		"context": contextSecs,
		"insight": insight,
		"cta":     cta,
	}
}

func editorialFormatNames() []string {
	formats := model.AllEditorialFormats()
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

func angleNames() []string {
	angles := model.AllEditorialAngles()
	out := make([]string, len(angles))
	for i, a := range angles {
		out[i] = string(a)
	}
	return out
}

func pathNames() []string {
	paths := model.AllMonetizationPaths()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}
	return out
}
