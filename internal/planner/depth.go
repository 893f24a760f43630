package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
)

const depthTask = `Decide how many content bullets the narrative should contain for this duration and how time distributes across them.

Think through, in order:
1. Topic complexity: how many distinct points does this topic genuinely sustain?
2. Attention-span pacing: shorts hold one or two points; 2-5 minute videos hold three to four; 5-8 minutes hold four to five; longer formats hold up to six.
3. Score each bullet's depth 0.0-1.0: how much substance it carries.
4. Shape the progression: a narrative should build to at least one peak-depth bullet.

Return a valid JSON object:
{"recommended_bullets": <int 2-10>, "time_per_bullet": [<int seconds>, ...], "depth_scores": [<0.0-1.0>, ...], "pacing_guidance": "<brief>", "reasoning": "<brief>", "adequacy_score": <0.0-1.0>}
Both arrays must have exactly recommended_bullets entries. Total bullet time should use 70-90% of the duration, the rest is transitions.`

// Bullet count bounds.
const (
	minBullets = 2
	maxBullets = 10
)

// utilization is sum(time_per_bullet)/duration; outside this window the
// strategy is logged as suspect but not rejected.
const (
	minUtilization = 0.6
	maxUtilization = 0.95
)

// defaultDepthPattern is the fixed fallback depth shape, truncated to the
// bullet count: builds to a peak at the third bullet then tapers.
var defaultDepthPattern = []float64{0.6, 0.7, 0.8, 0.7, 0.6, 0.6}

// ContentDepthStrategist decides bullet count, per-bullet time, and depth
// distribution for a reconciled Timeline. Never returns an error.
type ContentDepthStrategist struct {
	gen Generator
	rec FallbackRecorder
}

// NewContentDepthStrategist creates a content depth strategist.
func NewContentDepthStrategist(gen Generator, rec FallbackRecorder) *ContentDepthStrategist {
	return &ContentDepthStrategist{gen: gen, rec: rec}
}

// Plan produces a content depth strategy for the Timeline's duration.
// narrativeActs is the planned act count (0 if unknown); editorialContext
// and the workspace are opaque prompt context.
func (s *ContentDepthStrategist) Plan(ctx context.Context, topic string, tl model.Timeline, narrativeActs int, editorialContext string, ws model.Workspace) (model.ContentDepthStrategy, model.TokenUsage) {
	duration := tl.ReconciledDuration

	genCtx := fmt.Sprintf("Topic: %s\nTarget duration: %ds (%s, %s)\nPlanned narrative acts: %d\nEditorial context: %s",
		topic, duration, tl.FormatType, tl.AspectRatio, narrativeActs, editorialContext)

	text, usage, err := s.gen.Generate(ctx, GenRequest{
		Role:       "content depth strategist",
		Task:       depthTask,
		Context:    genCtx,
		StyleHints: styleHints(ws),
		MaxTokens:  768,
	})
	if err != nil {
		recordFallback(ctx, s.rec, "content_depth_strategist", model.FallbackDeterministic,
			fmt.Sprintf("generate: %v", err), model.SeverityMedium)
		return FallbackDepthStrategy(duration), usage
	}

	var raw struct {
		RecommendedBullets int       `json:"recommended_bullets"`
		TimePerBullet      []int     `json:"time_per_bullet"`
		DepthScores        []float64 `json:"depth_scores"`
		PacingGuidance     string    `json:"pacing_guidance"`
		Reasoning          string    `json:"reasoning"`
		AdequacyScore      float64   `json:"adequacy_score"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		recordFallback(ctx, s.rec, "content_depth_strategist", model.FallbackDeterministic,
			"unparseable response", model.SeverityMedium)
		return FallbackDepthStrategy(duration), usage
	}

	strategy := model.ContentDepthStrategy{
		RecommendedBullets: raw.RecommendedBullets,
		TimePerBullet:      raw.TimePerBullet,
		DepthScores:        raw.DepthScores,
		PacingGuidance:     raw.PacingGuidance,
		Reasoning:          raw.Reasoning,
		AdequacyScore:      raw.AdequacyScore,
	}
	return validateDepthStrategy(strategy, duration), usage
}

// validateDepthStrategy repairs an AI-produced strategy field by field:
// out-of-range values are clamped or defaulted, never rejected.
func validateDepthStrategy(st model.ContentDepthStrategy, duration int) model.ContentDepthStrategy {
	// Bullet count clamp.
	if st.RecommendedBullets < minBullets || st.RecommendedBullets > maxBullets {
		clamped := st.RecommendedBullets
		if clamped < minBullets {
			clamped = minBullets
		}
		if clamped > maxBullets {
			clamped = maxBullets
		}
		zap.L().Warn("depth: recommended_bullets out of range, clamped",
			zap.Int("proposed", st.RecommendedBullets),
			zap.Int("clamped", clamped),
		)
		st.RecommendedBullets = clamped
	}
	n := st.RecommendedBullets

	// time_per_bullet length must equal the bullet count: pad with the
	// average bullet time, or truncate.
	if len(st.TimePerBullet) != n {
		zap.L().Warn("depth: time_per_bullet length mismatch",
			zap.Int("got", len(st.TimePerBullet)),
			zap.Int("want", n),
		)
		avg := duration * 80 / 100 / n
		if len(st.TimePerBullet) > 0 {
			sum := 0
			for _, t := range st.TimePerBullet {
				sum += t
			}
			avg = sum / len(st.TimePerBullet)
		}
		for len(st.TimePerBullet) < n {
			st.TimePerBullet = append(st.TimePerBullet, avg)
		}
		st.TimePerBullet = st.TimePerBullet[:n]
	}

	// Utilization window check: warn only.
	if duration > 0 {
		sum := 0
		for _, t := range st.TimePerBullet {
			sum += t
		}
		utilization := float64(sum) / float64(duration)
		if utilization < minUtilization || utilization > maxUtilization {
			zap.L().Warn("depth: time utilization outside expected window",
				zap.Float64("utilization", utilization),
				zap.Int("bullet_seconds", sum),
				zap.Int("duration", duration),
			)
		}
	}

	// Depth scores default to a flat 0.7 when missing or mismatched.
	if len(st.DepthScores) != n {
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = 0.7
		}
		st.DepthScores = scores
	} else {
		for i, d := range st.DepthScores {
			st.DepthScores[i] = clampScore(d)
		}
	}

	if st.AdequacyScore <= 0 {
		st.AdequacyScore = computeAdequacy(st, duration)
	}
	st.AdequacyScore = clampScore(st.AdequacyScore)

	return st
}

// computeAdequacy scores a strategy deterministically when the AI omitted
// its self-assessment. Baseline 0.5 plus three weighted factors, capped at
// 1.0: bullet count near the duration-derived optimum, utilization in the
// sweet spot, and the presence of a peak-depth bullet.
func computeAdequacy(st model.ContentDepthStrategy, duration int) float64 {
	score := 0.5

	// Factor a: closeness of the bullet count to the optimal heuristic.
	optimal := duration / 90
	if optimal < minBullets {
		optimal = minBullets
	}
	switch diff := abs(st.RecommendedBullets - optimal); {
	case diff == 0:
		score += 0.25
	case diff == 1:
		score += 0.15
	case diff == 2:
		score += 0.05
	}

	// Factor b: utilization inside the 0.75-0.90 sweet spot.
	if duration > 0 {
		sum := 0
		for _, t := range st.TimePerBullet {
			sum += t
		}
		utilization := float64(sum) / float64(duration)
		switch {
		case utilization >= 0.75 && utilization <= 0.90:
			score += 0.25
		case utilization >= 0.70 && utilization <= 0.95:
			score += 0.10
		}
	}

	// Factor c: the narrative needs a peak bullet.
	if len(st.DepthScores) > 0 {
		maxDepth, sumDepth := 0.0, 0.0
		for _, d := range st.DepthScores {
			if d > maxDepth {
				maxDepth = d
			}
			sumDepth += d
		}
		mean := sumDepth / float64(len(st.DepthScores))
		if maxDepth >= 0.8 && mean >= 0.6 {
			score += 0.2
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// FallbackDepthStrategy is the fully deterministic strategy used when the
// AI path fails: bullet count by duration bracket, equal time allocation at
// 80% utilization, fixed depth pattern.
func FallbackDepthStrategy(duration int) model.ContentDepthStrategy {
	var n int
	switch {
	case duration <= 60:
		n = 2
	case duration <= 120:
		n = 3
	case duration <= 300:
		n = 4
	case duration <= 480:
		n = 5
	default:
		n = 6
	}

	total := duration * 80 / 100
	per := total / n
	remainder := total % n
	times := make([]int, n)
	for i := range times {
		times[i] = per
		if i < remainder {
			times[i]++
		}
	}

	depths := make([]float64, n)
	copy(depths, defaultDepthPattern[:n])

	return model.ContentDepthStrategy{
		RecommendedBullets: n,
		TimePerBullet:      times,
		DepthScores:        depths,
		PacingGuidance:     "even pacing with a mid-arc peak",
		Reasoning:          "deterministic duration-bracket fallback",
		AdequacyScore:      0.65,
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
