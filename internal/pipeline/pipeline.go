// Package pipeline orchestrates the video planning phases: independent
// duration and editorial proposals, format reconciliation, content depth,
// narrative design and expansion, CTA planning, and the final audits.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/config"
	"github.com/sells-group/studio-cli/internal/cost"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/store"
)

// Pipeline orchestrates the planning phases for a single topic.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	gen      planner.Generator
	costCalc *cost.Calculator
}

// New creates a new Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, gen planner.Generator) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		gen:      gen,
		costCalc: cost.NewCalculator(cost.DefaultRates()),
	}
}

// workspace converts configuration into the planner's channel context.
func (p *Pipeline) workspace() model.Workspace {
	return workspaceFromConfig(p.cfg)
}

// Run executes the full planning pipeline for one trend candidate. Ad hoc
// runs pass a candidate with just the topic set; source defaults to
// "manual" and the vertical to the workspace's.
func (p *Pipeline) Run(ctx context.Context, cand model.TrendCandidate) (*model.RunResult, error) {
	ws := p.workspace()
	if cand.Source == "" {
		cand.Source = "manual"
	}
	if cand.Vertical == "" {
		cand.Vertical = ws.VerticalID
	}
	topic := cand.Topic

	log := zap.L().With(zap.String("topic", topic), zap.String("vertical", ws.VerticalID))
	log.Info("pipeline: starting plan", zap.String("source", cand.Source))

	run, err := p.store.CreateRun(ctx, topic, ws.VerticalID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result := &model.RunResult{}
	rec := newStoreRecorder(p.store, run.ID)

	// Update status helper.
	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Phase tracking helper.
	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) *model.PhaseResult {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{Name: name}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if phaseResult.Status == "" {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if phase != nil {
			_ = p.store.CompletePhase(ctx, phase.ID, phaseResult)
		}
		result.Phases = append(result.Phases, *phaseResult)
		return phaseResult
	}

	var totalUsage model.TokenUsage
	addUsage := func(u model.TokenUsage) {
		totalUsage.Add(u)
	}

	plan := &model.VideoPlan{Candidate: cand}

	// ===== Phase 1: Independent proposals, run in a fixed order =====
	setStatus(model.RunStatusProposing)

	durationStrategist := planner.NewDurationStrategist(p.gen, rec)
	editorialStrategist := planner.NewEditorialStrategist(p.gen, rec)

	trackPhase("1a_duration", func() (*model.PhaseResult, error) {
		dp, usage := durationStrategist.Propose(ctx, topic, ws)
		plan.Duration = dp
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"target_duration": dp.TargetDurationSeconds,
				"format_type":     string(dp.FormatType),
			},
		}, nil
	})

	trackPhase("1b_editorial", func() (*model.PhaseResult, error) {
		ep, usage := editorialStrategist.Propose(ctx, topic, ws)
		plan.Editorial = ep
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"duration_target": ep.DurationTarget,
				"format":          string(ep.Format),
				"angle":           string(ep.Angle),
			},
		}, nil
	})

	// ===== Phase 2: Format reconciliation =====
	setStatus(model.RunStatusReconciling)

	reconciler := planner.NewFormatReconciler(p.gen, rec)
	trackPhase("2_reconcile", func() (*model.PhaseResult, error) {
		tl, usage := reconciler.Reconcile(ctx, topic, ws, plan.Editorial, plan.Duration)
		plan.Timeline = tl
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"reconciled_duration": tl.ReconciledDuration,
				"arbitration_source":  string(tl.ArbitrationSource),
				"divergence_pct": planner.DivergencePct(
					plan.Editorial.DurationTarget, plan.Duration.TargetDurationSeconds),
			},
		}, nil
	})

	// ===== Phase 3: Content depth =====
	setStatus(model.RunStatusStructuring)

	depthStrategist := planner.NewContentDepthStrategist(p.gen, rec)
	trackPhase("3_depth", func() (*model.PhaseResult, error) {
		depth, usage := depthStrategist.Plan(ctx, topic, plan.Timeline, 0, plan.Editorial.SerieConcept, ws)
		plan.Depth = depth
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"bullets":  depth.RecommendedBullets,
				"adequacy": depth.AdequacyScore,
			},
		}, nil
	})

	// ===== Phase 4: Narrative design =====
	architect := planner.NewNarrativeArchitect(p.gen, rec, p.cfg.Planner.MaxExpandAttempts)
	trackPhase("4_narrative", func() (*model.PhaseResult, error) {
		arc, usage := architect.Design(ctx, topic, plan.Timeline, &plan.Depth, ws)
		plan.Narrative = arc
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"acts": len(arc.Acts),
			},
		}, nil
	})

	// ===== Phase 5: Voiceover expansion =====
	setStatus(model.RunStatusExpanding)

	trackPhase("5_expand", func() (*model.PhaseResult, error) {
		arc, usage := architect.ExpandVoiceovers(ctx, topic, plan.Timeline, plan.Narrative, ws)
		plan.Narrative = arc
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"acts": len(arc.Acts),
			},
		}, nil
	})

	// ===== Phase 6: CTA planning =====
	ctaStrategist := planner.NewCTAStrategist(p.gen, rec)
	trackPhase("6_cta", func() (*model.PhaseResult, error) {
		cta, usage := ctaStrategist.Plan(ctx, topic, plan.Timeline, plan.Editorial, ws)
		plan.CTA = cta
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"placement":  cta.Placement,
				"at_seconds": cta.AtSeconds,
			},
		}, nil
	})

	// ===== Phase 7: Validation =====
	setStatus(model.RunStatusValidating)

	qa := planner.NewMonetizationQA(p.gen, rec)
	trackPhase("7_audit", func() (*model.PhaseResult, error) {
		audit, usage := qa.Audit(ctx, plan.Timeline, plan.Editorial, plan.CTA, ws)
		plan.Audit = audit
		addUsage(usage)
		return &model.PhaseResult{
			TokenUsage: usage,
			Metadata: map[string]any{
				"passed": audit.Passed,
				"score":  audit.Score,
			},
		}, nil
	})

	trackPhase("8_consistency", func() (*model.PhaseResult, error) {
		report := planner.FormatConsistencyValidator{}.Validate(plan.Timeline, plan.Depth, plan.Narrative)
		plan.Consistency = report
		return &model.PhaseResult{
			Metadata: map[string]any{
				"consistent": report.Consistent,
				"checks":     len(report.Checks),
			},
		}, nil
	})

	// Finalize.
	result.Plan = plan
	result.Fallbacks = rec.Events()
	result.TotalTokens = totalUsage.InputTokens + totalUsage.OutputTokens
	result.TotalCost = p.costCalc.Claude(
		p.cfg.Anthropic.SonnetModel,
		totalUsage.InputTokens, totalUsage.OutputTokens,
		totalUsage.CacheCreationTokens, totalUsage.CacheReadTokens,
	)

	// UpdateRunResult also moves the run to complete.
	if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}

	log.Info("pipeline: plan complete",
		zap.String("run_id", run.ID),
		zap.Int("reconciled_duration", plan.Timeline.ReconciledDuration),
		zap.Int("fallbacks", len(result.Fallbacks)),
		zap.Int("tokens", result.TotalTokens),
	)

	return result, nil
}
