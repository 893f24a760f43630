package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const narrativeTask = `Write the act-by-act narrative for this video: per-act voiceover text, emotional beat, and retention tactic.

Hard constraints:
- Exactly %d acts.
- Act durations must sum to %d seconds.
- Total voiceover length: %d words (%.0f per act on average), spoken at %.1f words per second.

Self-verification checklist before answering:
- [ ] %d acts exactly
- [ ] act durations sum to %ds
- [ ] total word count within a few percent of %d

Return a valid JSON object:
{"narrative_structure": [{"act_name": "<name>", "duration_seconds": <int>, "emotional_beat": "<beat>", "voiceover": "<spoken text>", "retention_tactic": "<tactic>"}, ...], "voice_personality": "<description>", "retention_hooks": ["<hook>", ...], "pacing_notes": "<brief>", "emotional_journey": "<brief>"}`

// narrativeResponse is the decoded shape of both the initial design and
// each expansion attempt.
type narrativeResponse struct {
	Acts             []model.NarrativeAct `json:"narrative_structure"`
	VoicePersonality string               `json:"voice_personality"`
	RetentionHooks   []string             `json:"retention_hooks"`
	PacingNotes      string               `json:"pacing_notes"`
	EmotionalJourney string               `json:"emotional_journey"`
}

// NarrativeArchitect produces act-by-act voiceover matching the Timeline's
// word-count budget, honoring the content depth strategist's bullet count
// as a hard act-count constraint. Never returns an error.
type NarrativeArchitect struct {
	gen         Generator
	rec         FallbackRecorder
	maxAttempts int
}

// NewNarrativeArchitect creates a narrative architect. maxAttempts bounds
// the expansion loop; values below 1 use the default of 3.
func NewNarrativeArchitect(gen Generator, rec FallbackRecorder, maxAttempts int) *NarrativeArchitect {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &NarrativeArchitect{gen: gen, rec: rec, maxAttempts: maxAttempts}
}

// Design produces the initial narrative arc. depth supplies the hard act
// count; nil falls back to a per-format default.
func (a *NarrativeArchitect) Design(ctx context.Context, topic string, tl model.Timeline, depth *model.ContentDepthStrategy, ws model.Workspace) (model.NarrativeArc, model.TokenUsage) {
	numActs := defaultActCount(tl.FormatType)
	if depth != nil {
		numActs = depth.RecommendedBullets
	}

	targetWords := targetWordCount(tl.ReconciledDuration)
	wordsPerAct := float64(targetWords) / float64(numActs)

	task := fmt.Sprintf(narrativeTask,
		numActs, tl.ReconciledDuration, targetWords, wordsPerAct, WordsPerSecond,
		numActs, tl.ReconciledDuration, targetWords,
	)
	genCtx := fmt.Sprintf("Topic: %s\nTimeline: %ds, %s, %s\nDepth plan: %s",
		topic, tl.ReconciledDuration, tl.FormatType, tl.AspectRatio, depthSummary(depth))

	text, usage, err := a.gen.Generate(ctx, GenRequest{
		Role:       "narrative architect",
		Task:       task,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  4096,
	})
	if err != nil {
		recordFallback(ctx, a.rec, "narrative_architect", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityHigh)
		return fallbackArc(topic, tl, numActs), usage
	}

	var raw narrativeResponse
	if !llmjson.DecodeObject(text, &raw) || len(raw.Acts) == 0 {
		recordFallback(ctx, a.rec, "narrative_architect", model.FallbackDeterministic,
			"unparseable narrative response", model.SeverityHigh)
		return fallbackArc(topic, tl, numActs), usage
	}

	arc := arcFromResponse(raw)
	arc = enforceActCount(arc, numActs)
	finalizeArc(&arc)
	return arc, usage
}

// targetWordCount converts a duration into the voiceover word budget.
func targetWordCount(durationSeconds int) int {
	return int(float64(durationSeconds) * WordsPerSecond)
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func defaultActCount(format model.FormatType) int {
	switch format {
	case model.FormatShort:
		return 3
	case model.FormatMid:
		return 4
	default:
		return 5
	}
}

func depthSummary(depth *model.ContentDepthStrategy) string {
	if depth == nil {
		return "none"
	}
	return fmt.Sprintf("%d bullets, time per bullet %v, pacing: %s",
		depth.RecommendedBullets, depth.TimePerBullet, depth.PacingGuidance)
}

// arcFromResponse converts a decoded response into an arc without derived
// fields; finalizeArc fills those.
func arcFromResponse(raw narrativeResponse) model.NarrativeArc {
	return model.NarrativeArc{
		Acts:             raw.Acts,
		VoicePersonality: raw.VoicePersonality,
		RetentionHooks:   raw.RetentionHooks,
		PacingNotes:      raw.PacingNotes,
		EmotionalJourney: raw.EmotionalJourney,
	}
}

// enforceActCount applies the hard act-count constraint: surplus acts are
// merged into the final act rather than dropped, so no voiceover is lost.
// A deficit is kept as-is (warned) since splitting acts would fabricate
// structure.
func enforceActCount(arc model.NarrativeArc, numActs int) model.NarrativeArc {
	if len(arc.Acts) <= numActs {
		if len(arc.Acts) < numActs {
			zap.L().Warn("narrative: fewer acts than requested",
				zap.Int("got", len(arc.Acts)),
				zap.Int("want", numActs),
			)
		}
		return arc
	}

	zap.L().Warn("narrative: more acts than requested, merging surplus into final act",
		zap.Int("got", len(arc.Acts)),
		zap.Int("want", numActs),
	)
	kept := make([]model.NarrativeAct, numActs)
	copy(kept, arc.Acts[:numActs])
	last := &kept[numActs-1]
	for _, extra := range arc.Acts[numActs:] {
		last.DurationSeconds += extra.DurationSeconds
		last.Voiceover = strings.TrimSpace(last.Voiceover + " " + extra.Voiceover)
	}
	arc.Acts = kept
	return arc
}

// finalizeArc recomputes the derived fields from the acts: FullVoiceover is
// the concatenation of act voiceovers, EmotionalBeats a cumulative-time
// index of each act's beat. Must run after every mutation of the acts.
func finalizeArc(arc *model.NarrativeArc) {
	parts := make([]string, 0, len(arc.Acts))
	beats := make([]model.EmotionalBeat, 0, len(arc.Acts))
	elapsed := 0
	for _, act := range arc.Acts {
		if v := strings.TrimSpace(act.Voiceover); v != "" {
			parts = append(parts, v)
		}
		beats = append(beats, model.EmotionalBeat{
			AtSeconds: elapsed,
			Beat:      act.EmotionalBeat,
		})
		elapsed += act.DurationSeconds
	}
	arc.FullVoiceover = strings.Join(parts, " ")
	arc.EmotionalBeats = beats
}

// fallbackArc is the deterministic arc used when narrative generation
// fails outright: evenly split acts with template voiceovers. Downstream
// stages still get a structurally valid arc to work with.
func fallbackArc(topic string, tl model.Timeline, numActs int) model.NarrativeArc {
	actNames := []string{"Hook", "Setup", "Development", "Turn", "Payoff", "Outro"}
	beats := []string{"curiosity", "tension", "build", "surprise", "resolution", "invitation"}

	per := tl.ReconciledDuration / numActs
	remainder := tl.ReconciledDuration % numActs

	acts := make([]model.NarrativeAct, numActs)
	for i := range acts {
		name := actNames[i%len(actNames)]
		dur := per
		if i < remainder {
			dur++
		}
		acts[i] = model.NarrativeAct{
			ActName:         fmt.Sprintf("%s (%d/%d)", name, i+1, numActs),
			DurationSeconds: dur,
			EmotionalBeat:   beats[i%len(beats)],
			Voiceover:       fmt.Sprintf("Placeholder narration for %s, part %d of %d.", topic, i+1, numActs),
			RetentionTactic: "open loop",
		}
	}

	arc := model.NarrativeArc{
		Acts:             acts,
		VoicePersonality: "neutral narrator",
		RetentionHooks:   []string{"open loop"},
		PacingNotes:      "even pacing",
		EmotionalJourney: "curiosity to resolution",
	}
	finalizeArc(&arc)
	return arc
}
