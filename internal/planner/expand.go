package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const expandTask = `The narrative below is %d words but the %d-second timeline needs %d words (%.1f words per second). Expand it.

Rules:
- Enrich EVERY act's voiceover proportionally; do not pad a single act.
- Preserve the emotional arc, voice personality, and each act's retention tactic.
- Act names, durations, and order stay unchanged.
- Add substance (detail, examples, sensory texture), not filler.

Return the complete narrative as a valid JSON object with the same shape:
{"narrative_structure": [{"act_name": "...", "duration_seconds": <int>, "emotional_beat": "...", "voiceover": "<expanded text>", "retention_tactic": "..."}, ...], "voice_personality": "...", "retention_hooks": [...], "pacing_notes": "...", "emotional_journey": "..."}`

// bestAttempt accumulates the best-scoring arc seen across expansion
// retries, so a late, worse retry never discards an earlier, better one.
type bestAttempt struct {
	arc        model.NarrativeArc
	divergence float64
}

// consider keeps candidate if it strictly improves on the best so far.
func (b *bestAttempt) consider(candidate model.NarrativeArc, divergence float64) {
	if divergence < b.divergence {
		b.arc = candidate
		b.divergence = divergence
	}
}

// ExpandVoiceovers grows an under-length narrative toward the Timeline's
// word-count target through bounded expansion retries. It has no failure
// exit, only degraded-quality exits: the worst case returns the input arc
// unchanged. Each retry uses the just-expanded text as its new baseline
// (iterative refinement), and the best attempt across all retries is
// retained even when none reaches the tolerance.
func (a *NarrativeArchitect) ExpandVoiceovers(ctx context.Context, topic string, tl model.Timeline, arc model.NarrativeArc, ws model.Workspace) (model.NarrativeArc, model.TokenUsage) {
	var usage model.TokenUsage

	targetWords := targetWordCount(tl.ReconciledDuration)
	startDivergence := wordDivergencePct(arc.FullVoiceover, targetWords)

	// Already within tolerance: no expansion needed. This uses the same
	// constant as the reconciler's fast path.
	if startDivergence < DivergenceTolerancePct {
		zap.L().Info("expand: narrative already within tolerance",
			zap.Float64("divergence_pct", startDivergence),
			zap.Int("words", wordCount(arc.FullVoiceover)),
			zap.Int("target_words", targetWords),
		)
		return arc, usage
	}

	best := bestAttempt{arc: arc, divergence: startDivergence}
	current := arc

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		expanded, attemptUsage, err := a.expandOnce(ctx, topic, tl, current, targetWords, ws)
		usage.Add(attemptUsage)
		if err != nil {
			zap.L().Warn("expand: attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		divergence := wordDivergencePct(expanded.FullVoiceover, targetWords)
		best.consider(expanded, divergence)

		zap.L().Debug("expand: attempt complete",
			zap.Int("attempt", attempt),
			zap.Float64("divergence_pct", divergence),
			zap.Int("words", wordCount(expanded.FullVoiceover)),
		)

		if divergence < DivergenceTolerancePct {
			zap.L().Info("expand: converged",
				zap.Int("attempt", attempt),
				zap.Float64("divergence_pct", divergence),
			)
			return expanded, usage
		}

		// Iterative refinement: the next attempt builds on this output
		// rather than restarting from the original.
		current = expanded
	}

	// Retries exhausted without convergence: best-effort acceptance.
	recordFallback(ctx, a.rec, "narrative_architect", model.FallbackBestEffort,
		fmt.Sprintf("expansion did not converge: best divergence %.1f%% (start %.1f%%), %d words of %d target",
			best.divergence, startDivergence, wordCount(best.arc.FullVoiceover), targetWords),
		model.SeverityLow)
	return best.arc, usage
}

// expandOnce performs one expansion round trip: prompt, parse, re-derive.
// The act structure is pinned to the input's: names, durations, and count
// are restored from the baseline so the LLM can only change voiceover text
// and annotations.
func (a *NarrativeArchitect) expandOnce(ctx context.Context, topic string, tl model.Timeline, current model.NarrativeArc, targetWords int, ws model.Workspace) (model.NarrativeArc, model.TokenUsage, error) {
	currentJSON, err := json.Marshal(narrativeResponse{
		Acts:             current.Acts,
		VoicePersonality: current.VoicePersonality,
		RetentionHooks:   current.RetentionHooks,
		PacingNotes:      current.PacingNotes,
		EmotionalJourney: current.EmotionalJourney,
	})
	if err != nil {
		return model.NarrativeArc{}, model.TokenUsage{}, err
	}

	task := fmt.Sprintf(expandTask,
		wordCount(current.FullVoiceover), tl.ReconciledDuration, targetWords, WordsPerSecond)

	text, usage, err := a.gen.Generate(ctx, GenRequest{
		Role:       "narrative architect",
		Task:       task,
		Context:    fmt.Sprintf("Topic: %s\nCurrent narrative:\n%s", topic, currentJSON),
		StyleHints: styleHints(ws),
		MaxTokens:  4096,
	})
	if err != nil {
		return model.NarrativeArc{}, usage, err
	}

	var raw narrativeResponse
	if !llmjson.DecodeObject(text, &raw) || len(raw.Acts) == 0 {
		return model.NarrativeArc{}, usage, fmt.Errorf("unparseable expansion response")
	}

	expanded := arcFromResponse(raw)
	expanded = pinActStructure(expanded, current)
	finalizeArc(&expanded)
	return expanded, usage, nil
}

// pinActStructure restores the baseline's act names, durations, and count
// onto an expanded arc, keeping only the rewritten voiceovers and per-act
// annotations. Missing acts fall back to the baseline act wholesale.
func pinActStructure(expanded, baseline model.NarrativeArc) model.NarrativeArc {
	acts := make([]model.NarrativeAct, len(baseline.Acts))
	for i, base := range baseline.Acts {
		acts[i] = base
		if i < len(expanded.Acts) {
			if v := expanded.Acts[i].Voiceover; v != "" {
				acts[i].Voiceover = v
			}
			if b := expanded.Acts[i].EmotionalBeat; b != "" {
				acts[i].EmotionalBeat = b
			}
			if r := expanded.Acts[i].RetentionTactic; r != "" {
				acts[i].RetentionTactic = r
			}
		}
	}
	expanded.Acts = acts
	if expanded.VoicePersonality == "" {
		expanded.VoicePersonality = baseline.VoicePersonality
	}
	if len(expanded.RetentionHooks) == 0 {
		expanded.RetentionHooks = baseline.RetentionHooks
	}
	if expanded.PacingNotes == "" {
		expanded.PacingNotes = baseline.PacingNotes
	}
	if expanded.EmotionalJourney == "" {
		expanded.EmotionalJourney = baseline.EmotionalJourney
	}
	return expanded
}

// wordDivergencePct is |target-current|/target*100 over word counts.
func wordDivergencePct(voiceover string, targetWords int) float64 {
	if targetWords == 0 {
		return 0
	}
	current := wordCount(voiceover)
	diff := targetWords - current
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(targetWords) * 100
}
