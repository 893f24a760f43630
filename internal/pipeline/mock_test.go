package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/studio-cli/internal/config"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/store"
)

// roleGenerator answers by the requesting agent's role. Roles without a
// canned response get an error, which drives the caller's fallback path.
type roleGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func (g *roleGenerator) Generate(_ context.Context, req planner.GenRequest) (string, model.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[req.Role]++
	resp, ok := g.responses[req.Role]
	if !ok {
		return "", model.TokenUsage{}, fmt.Errorf("no canned response for role %q", req.Role)
	}
	return resp, model.TokenUsage{InputTokens: 100, OutputTokens: 50}, nil
}

func (g *roleGenerator) callsFor(role string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[role]
}

// failingGenerator errors on every call.
type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, planner.GenRequest) (string, model.TokenUsage, error) {
	return "", model.TokenUsage{}, errors.New("model unavailable")
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Key:         "test-key",
			HaikuModel:  "claude-haiku-4-5-20251001",
			SonnetModel: "claude-sonnet-4-5-20250929",
		},
		Workspace: config.WorkspaceConfig{
			VerticalID:     "personal_finance",
			BrandTone:      "direct, no hype",
			CPMBaseline:    12.5,
			TargetLanguage: "en",
		},
		Planner: config.PlannerConfig{
			MaxExpandAttempts: 3,
			CallTimeoutSecs:   60,
		},
		Outreach: config.OutreachConfig{
			MaxConcurrentArticles: 2,
			FitThreshold:          0.6,
		},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// happyResponses scripts every agent with durations close enough that
// reconciliation takes the fast path and the voiceover needs no expansion.
// Editorial bids 320s, duration bids 300s: 6.25% apart, the duration
// strategist's 300s carries.
func happyResponses() map[string]string {
	voiceover := strings.TrimSpace(strings.Repeat("beat ", 180))
	acts := make([]string, 4)
	for i, name := range []string{"Hook", "Setup", "Development", "Payoff"} {
		acts[i] = fmt.Sprintf(`{"act_name":%q,"duration_seconds":80,"emotional_beat":"curiosity","voiceover":%q,"retention_tactic":"open loop"}`, name, voiceover)
	}
	return map[string]string{
		"duration strategist": `{
			"target_duration_seconds": 300, "format_type": "mid",
			"content_depth_score": 0.7, "viral_potential_score": 0.6,
			"monetization_strategy": "retention-first", "reasoning": "mid-form sweet spot"
		}`,
		"editorial strategist": `{
			"duration_target": 320,
			"duration_breakdown": {"hook": 32, "context": 96, "insight": 160, "cta": 32},
			"serie_concept": "money traps", "format": "analysis", "angle": "risk",
			"monetization_path": "lead_magnet", "reasoning_summary": "risk angle converts"
		}`,
		"content depth strategist": `{
			"recommended_bullets": 4, "time_per_bullet": [80, 80, 80, 80],
			"depth_scores": [0.6, 0.7, 0.8, 0.7],
			"pacing_guidance": "slow build", "reasoning": "four pillars", "adequacy_score": 0.8
		}`,
		"narrative architect": fmt.Sprintf(`{
			"narrative_structure": [%s],
			"voice_personality": "calm expert", "retention_hooks": ["cold open"],
			"pacing_notes": "steady", "emotional_journey": "curiosity to resolve"
		}`, strings.Join(acts, ",")),
		"cta strategist": `{
			"placement": "midroll", "at_seconds": 160,
			"script": "Grab the free checklist below.",
			"monetization_path": "lead_magnet", "reasoning": "mid-video peak"
		}`,
		"monetization auditor": `{
			"passed": true, "score": 0.92, "findings": [], "reasoning": "paths aligned"
		}`,
	}
}
