package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/studio-cli/internal/config"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/outreach"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/resilience"
	"github.com/sells-group/studio-cli/internal/store"
	"github.com/sells-group/studio-cli/pkg/salesforce"
)

// Outreach runs the PR article branch: fit analysis, author profiling,
// email drafting, and review-queue submission for a batch of articles.
type Outreach struct {
	cfg      *config.Config
	store    store.Store
	gen      planner.Generator
	reviewer *outreach.Reviewer // nil disables review-queue submission
}

// NewOutreach creates the outreach batch runner. Pass a nil reviewer to
// keep drafts store-only (tests, dry runs).
func NewOutreach(cfg *config.Config, st store.Store, gen planner.Generator, reviewer *outreach.Reviewer) *Outreach {
	return &Outreach{cfg: cfg, store: st, gen: gen, reviewer: reviewer}
}

// OutreachResult summarizes a batch run.
type OutreachResult struct {
	Processed int                   `json:"processed"`
	Drafted   int                   `json:"drafted"`
	Skipped   int                   `json:"skipped"` // below fit threshold or not relevant
	Failed    []resilience.DLQEntry `json:"failed,omitempty"`
	Usage     model.TokenUsage      `json:"usage"`
}

// RunBatch processes articles concurrently, bounded by
// outreach.max_concurrent_articles. Per-article failures go to the result's
// dead letter entries instead of aborting the batch; RunBatch only returns
// an error when the context is cancelled.
func (o *Outreach) RunBatch(ctx context.Context, articles []model.Article) (*OutreachResult, error) {
	ws := workspaceFromConfig(o.cfg)
	log := zap.L().With(zap.String("vertical", ws.VerticalID))
	log.Info("outreach: starting batch", zap.Int("articles", len(articles)))

	limit := o.cfg.Outreach.MaxConcurrentArticles
	if limit < 1 {
		limit = 1
	}

	result := &OutreachResult{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, article := range articles {
		a := article
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			usage, draft, dlq := o.processArticle(gCtx, a, ws)

			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			result.Usage.Add(usage)
			switch {
			case dlq != nil:
				result.Failed = append(result.Failed, *dlq)
			case draft != nil:
				result.Drafted++
			default:
				result.Skipped++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	log.Info("outreach: batch complete",
		zap.Int("processed", result.Processed),
		zap.Int("drafted", result.Drafted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// processArticle runs one article through fit, profile, and draft. Returns
// the accumulated usage, the saved draft (nil when skipped), and a DLQ
// entry when any stage failed.
func (o *Outreach) processArticle(ctx context.Context, a model.Article, ws model.Workspace) (model.TokenUsage, *model.EmailDraft, *resilience.DLQEntry) {
	var usage model.TokenUsage
	log := zap.L().With(zap.String("url", a.URL))

	fit, fitUsage, err := outreach.AnalyzeFit(ctx, o.gen, a, ws)
	usage.Add(fitUsage)
	if err != nil {
		log.Warn("outreach: fit analysis failed", zap.Error(err))
		return usage, nil, resilience.NewDLQEntry(a, "fit", err)
	}
	if !fit.Relevant || fit.Score < o.cfg.Outreach.FitThreshold {
		log.Debug("outreach: article below fit threshold",
			zap.Float64("score", fit.Score),
			zap.Bool("relevant", fit.Relevant),
		)
		return usage, nil, nil
	}

	author, authorUsage, err := outreach.ProfileAuthor(ctx, o.gen, a, ws)
	usage.Add(authorUsage)
	if err != nil {
		log.Warn("outreach: author profiling failed", zap.Error(err))
		return usage, nil, resilience.NewDLQEntry(a, "profile", err)
	}

	subject, body, draftUsage, err := outreach.DraftEmail(ctx, o.gen, a, fit, author, ws)
	usage.Add(draftUsage)
	if err != nil {
		log.Warn("outreach: email drafting failed", zap.Error(err))
		return usage, nil, resilience.NewDLQEntry(a, "draft", err)
	}

	now := time.Now().UTC()
	draft := &model.EmailDraft{
		ID:        uuid.New().String(),
		Article:   a,
		Fit:       fit,
		Author:    author,
		Subject:   subject,
		Body:      body,
		Status:    model.ReviewPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.SaveDraft(ctx, draft); err != nil {
		log.Warn("outreach: save draft failed", zap.Error(err))
		return usage, nil, resilience.NewDLQEntry(a, "save", err)
	}

	if o.reviewer != nil {
		pageID, err := o.reviewer.SubmitDraft(ctx, draft)
		if err != nil {
			// The draft is already persisted; a failed submission is
			// recoverable by resubmitting, not a lost article.
			log.Warn("outreach: review submission failed",
				zap.String("draft_id", draft.ID),
				zap.Error(err),
			)
		} else if err := o.store.UpdateDraftStatus(ctx, draft.ID, model.ReviewPending, pageID); err != nil {
			log.Warn("outreach: record review page failed",
				zap.String("draft_id", draft.ID),
				zap.Error(err),
			)
		}
	}

	return usage, draft, nil
}

// PushApproved sends every approved draft to Salesforce as a Lead. Returns
// the number pushed. Per-draft failures are logged and skipped so one bad
// record does not block the rest.
func (o *Outreach) PushApproved(ctx context.Context, sf salesforce.Client) (int, error) {
	drafts, err := o.store.ListDrafts(ctx, model.ReviewApproved, 0)
	if err != nil {
		return 0, err
	}

	pushed := 0
	for i := range drafts {
		if ctx.Err() != nil {
			return pushed, ctx.Err()
		}
		if _, err := outreach.PushLead(ctx, sf, &drafts[i]); err != nil {
			zap.L().Warn("outreach: lead push failed",
				zap.String("draft_id", drafts[i].ID),
				zap.Error(err),
			)
			continue
		}
		pushed++
	}
	return pushed, nil
}

// workspaceFromConfig mirrors Pipeline.workspace for the outreach runner.
func workspaceFromConfig(cfg *config.Config) model.Workspace {
	return model.Workspace{
		VerticalID:     cfg.Workspace.VerticalID,
		BrandTone:      cfg.Workspace.BrandTone,
		CPMBaseline:    cfg.Workspace.CPMBaseline,
		TargetLanguage: cfg.Workspace.TargetLanguage,
	}
}
