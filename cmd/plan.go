package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/config"
	"github.com/sells-group/studio-cli/internal/feeds"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/pipeline"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/store"
)

var (
	planTopic    string
	planFromCSV  string
	planVertical string
	planLimit    int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a video for a topic, or for top trending topics from a CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("plan"); err != nil {
			return err
		}
		if planTopic == "" && planFromCSV == "" && cfg.Feeds.TrendCSVURL == "" {
			return eris.New("either --topic or --from-csv is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		env := planEnv{
			rateCard: loadRateCard(),
			presets:  loadPresets(),
		}
		gen := initGenerator()

		if planTopic != "" {
			result, err := runPlan(ctx, st, gen, env, model.TrendCandidate{
				Topic:    planTopic,
				Vertical: planVertical,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		}

		trends, err := loadTrends(ctx)
		if err != nil {
			return err
		}
		if len(trends) == 0 {
			zap.L().Warn("no trend candidates found")
			return nil
		}

		// Highest momentum first.
		sort.Slice(trends, func(i, j int) bool {
			return trends[i].MomentumScore > trends[j].MomentumScore
		})
		if planLimit > 0 && len(trends) > planLimit {
			trends = trends[:planLimit]
		}

		var results []*model.RunResult
		for _, trend := range trends {
			zap.L().Info("planning trend topic",
				zap.String("topic", trend.Topic),
				zap.String("vertical", trend.Vertical),
				zap.Float64("momentum", trend.MomentumScore),
			)

			result, err := runPlan(ctx, st, gen, env, model.TrendCandidate{
				Topic:         trend.Topic,
				Vertical:      trend.Vertical,
				MomentumScore: trend.MomentumScore,
				Source:        trend.Source,
			})
			if err != nil {
				zap.L().Error("plan failed", zap.String("topic", trend.Topic), zap.Error(err))
				continue
			}
			results = append(results, result)
		}
		return printJSON(results)
	},
}

// planEnv carries the optional per-vertical data sources a plan run
// consults before the pipeline starts.
type planEnv struct {
	rateCard feeds.RateCard
	presets  *config.WorkspacePresets
}

// runPlan executes the planning pipeline for one candidate. A vertical
// override swaps in that vertical's workspace preset and rate-card CPM
// baseline.
func runPlan(ctx context.Context, st store.Store, gen planner.Generator, env planEnv, cand model.TrendCandidate) (*model.RunResult, error) {
	runCfg := *cfg
	if cand.Vertical != "" {
		runCfg.Workspace.VerticalID = cand.Vertical
		if env.presets != nil {
			runCfg.Workspace = env.presets.Apply(runCfg.Workspace, cand.Vertical)
		}
	}
	if env.rateCard != nil {
		runCfg.Workspace.CPMBaseline = env.rateCard.CPM(runCfg.Workspace.VerticalID, runCfg.Workspace.CPMBaseline)
	}

	result, err := pipeline.New(&runCfg, st, gen).Run(ctx, cand)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline run")
	}

	zap.L().Info("plan complete",
		zap.String("topic", cand.Topic),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Float64("total_cost_usd", result.TotalCost),
	)
	return result, nil
}

// loadRateCard reads the configured CPM rate card, if any. A missing or
// broken card is logged and ignored so planning can proceed on the
// configured baseline.
func loadRateCard() feeds.RateCard {
	if cfg.Feeds.RateCardXLSX == "" {
		return nil
	}
	card, err := feeds.LoadRateCard(cfg.Feeds.RateCardXLSX)
	if err != nil {
		zap.L().Warn("rate card unavailable, using configured CPM baseline", zap.Error(err))
		return nil
	}
	return card
}

// loadPresets reads the configured per-vertical workspace presets, if
// any. Like the rate card, a broken presets file degrades to the base
// workspace config.
func loadPresets() *config.WorkspacePresets {
	if cfg.Workspace.PresetsPath == "" {
		return nil
	}
	presets, err := config.LoadWorkspacePresets(cfg.Workspace.PresetsPath)
	if err != nil {
		zap.L().Warn("workspace presets unavailable", zap.Error(err))
		return nil
	}
	return presets
}

// loadTrends reads trend candidates from --from-csv (a local path or
// HTTP URL) or, failing that, the configured trend feed URL.
func loadTrends(ctx context.Context) ([]feeds.TrendRow, error) {
	source := planFromCSV
	if source == "" {
		source = cfg.Feeds.TrendCSVURL
	}

	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err := newFeedFetcher().Download(ctx, source)
		if err != nil {
			return nil, eris.Wrap(err, "fetch trend csv")
		}
		r = body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, eris.Wrap(err, "open trend csv")
		}
		r = f
	}
	defer r.Close() //nolint:errcheck

	return feeds.ParseTrendCSV(r)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	planCmd.Flags().StringVar(&planTopic, "topic", "", "video topic to plan")
	planCmd.Flags().StringVar(&planFromCSV, "from-csv", "", "trend CSV path or URL (default from config)")
	planCmd.Flags().StringVar(&planVertical, "vertical", "", "vertical override for --topic runs")
	planCmd.Flags().IntVar(&planLimit, "limit", 3, "max trend topics to plan per invocation")
	rootCmd.AddCommand(planCmd)
}
