// Package planner implements the video planning agents: duration and
// editorial strategists, the format reconciler that arbitrates their
// conflicting duration bids into one Timeline, the content depth
// strategist, and the narrative architect with its word-count convergence
// loop. Every component guarantees it returns a valid, schema-conforming
// value under all failure modes; LLM and parse failures degrade to
// deterministic fallbacks or best-effort results, never to errors.
package planner

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/model"
)

// DivergenceTolerancePct is the shared acceptance threshold: below it two
// duration proposals skip arbitration, and an expanded narrative's word
// count is accepted as converged. Both uses are intentionally the same
// constant.
const DivergenceTolerancePct = 15.0

// WordsPerSecond is the assumed voiceover pacing used to convert a
// Timeline duration into a word-count target.
const WordsPerSecond = 2.5

// Reconciled duration bounds in seconds.
const (
	MinDurationSeconds = 15
	MaxDurationSeconds = 1200
)

// DivergencePct returns |a-b|/max(a,b)*100, the percentage divergence
// between two positive quantities. Returns 0 when both are zero.
func DivergencePct(a, b int) float64 {
	hi := math.Max(float64(a), float64(b))
	if hi == 0 {
		return 0
	}
	return math.Abs(float64(a)-float64(b)) / hi * 100
}

// GenRequest describes one LLM generation call.
type GenRequest struct {
	Role        string            // persona, e.g. "duration strategist"
	Task        string            // instructions including the output JSON contract
	Context     string            // serialized upstream context
	StyleHints  map[string]string // brand tone, language, pacing hints
	MaxTokens   int64
	Temperature *float64
}

// Generator is the planner's only external boundary: a blocking text
// generation call whose response is expected to contain a JSON object.
type Generator interface {
	Generate(ctx context.Context, req GenRequest) (string, model.TokenUsage, error)
}

// FallbackRecorder receives a structured event for every degraded path.
type FallbackRecorder interface {
	Record(ctx context.Context, ev model.FallbackEvent)
}

// LogRecorder is a FallbackRecorder that only logs. Used when no store is
// wired (tests, one-shot CLI runs).
type LogRecorder struct{}

// Record logs the fallback event with structured fields.
func (LogRecorder) Record(_ context.Context, ev model.FallbackEvent) {
	zap.L().Warn("fallback event",
		zap.String("component", ev.Component),
		zap.String("fallback_type", string(ev.Type)),
		zap.String("reason", ev.Reason),
		zap.String("severity", string(ev.Severity)),
	)
}

// recordFallback emits a fallback event through rec (nil-safe) and the log.
func recordFallback(ctx context.Context, rec FallbackRecorder, component string, ft model.FallbackType, reason string, sev model.FallbackSeverity) {
	ev := model.FallbackEvent{
		Component: component,
		Type:      ft,
		Reason:    reason,
		Severity:  sev,
		At:        time.Now().UTC(),
	}
	zap.L().Warn("fallback event",
		zap.String("component", ev.Component),
		zap.String("fallback_type", string(ev.Type)),
		zap.String("reason", ev.Reason),
		zap.String("severity", string(ev.Severity)),
	)
	if rec != nil {
		rec.Record(ctx, ev)
	}
}

// clampDuration bounds a duration into the valid Timeline window.
func clampDuration(seconds int) int {
	if seconds < MinDurationSeconds {
		return MinDurationSeconds
	}
	if seconds > MaxDurationSeconds {
		return MaxDurationSeconds
	}
	return seconds
}

// clampScore bounds a score into [0,1].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// formatForDuration derives the format tier from a duration.
func formatForDuration(seconds int) model.FormatType {
	switch {
	case seconds <= 60:
		return model.FormatShort
	case seconds <= 480:
		return model.FormatMid
	default:
		return model.FormatLong
	}
}

// aspectRatioFor derives the aspect ratio. Vertical for shorts, otherwise
// widescreen; derived, never decided by an agent.
func aspectRatioFor(format model.FormatType, durationSeconds int) string {
	if format == model.FormatShort || durationSeconds < 60 {
		return "9:16"
	}
	return "16:9"
}

// styleHints builds the shared style-hint map from workspace config.
func styleHints(ws model.Workspace) map[string]string {
	return map[string]string{
		"brand_tone": ws.BrandTone,
		"language":   ws.TargetLanguage,
		"vertical":   ws.VerticalID,
	}
}
