package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/feeds"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/outreach"
	"github.com/sells-group/studio-cli/internal/pipeline"
	"github.com/sells-group/studio-cli/internal/resilience"
	"github.com/sells-group/studio-cli/pkg/notion"
)

var outreachFeeds []string

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "PR article outreach",
	Long:  "Discovers fitting articles from RSS feeds, drafts personalized emails, routes them through Notion review, and pushes approved drafts to Salesforce.",
}

// -- outreach run --

var outreachRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze feed articles and draft outreach emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("outreach"); err != nil {
			return err
		}

		feedURLs := outreachFeeds
		if len(feedURLs) == 0 {
			feedURLs = cfg.Feeds.RSSFeeds
		}
		if len(feedURLs) == 0 {
			return eris.New("no RSS feeds configured (--feed or feeds.rss_feeds)")
		}

		fetcher := newFeedFetcher()
		articles := collectArticles(ctx, fetcher, feedURLs)
		if len(articles) == 0 {
			zap.L().Warn("no articles discovered")
			return nil
		}

		result, err := runOutreachBatch(ctx, articles)
		if err != nil {
			return err
		}

		for host, state := range fetcher.BreakerStates() {
			if state != resilience.CircuitClosed {
				zap.L().Warn("feed host circuit not closed",
					zap.String("host", host),
					zap.Stringer("state", state),
				)
			}
		}
		return printJSON(result)
	},
}

// -- outreach archive --

var outreachArchiveCmd = &cobra.Command{
	Use:   "archive [ftp-url]",
	Short: "Process an archived feed dump fetched over FTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("outreach"); err != nil {
			return err
		}

		archiveURL := cfg.Feeds.ArchiveFTPURL
		if len(args) == 1 {
			archiveURL = args[0]
		}
		if archiveURL == "" {
			return eris.New("no archive URL given (arg or feeds.archive_ftp_url)")
		}

		workDir, err := os.MkdirTemp("", "studio-archive-*")
		if err != nil {
			return eris.Wrap(err, "create work dir")
		}
		defer os.RemoveAll(workDir) //nolint:errcheck

		zipPath := filepath.Join(workDir, "archive.zip")
		ftpFetcher := feeds.NewFTPFetcher(feeds.FTPOptions{})
		n, err := ftpFetcher.DownloadToFile(ctx, archiveURL, zipPath)
		if err != nil {
			return eris.Wrap(err, "download archive")
		}
		zap.L().Info("archive downloaded", zap.String("url", archiveURL), zap.Int64("bytes", n))

		members, err := feeds.ExtractArchive(zipPath, workDir)
		if err != nil {
			return eris.Wrap(err, "extract archive")
		}

		var articles []model.Article
		for _, member := range members {
			ext := strings.ToLower(filepath.Ext(member))
			if ext != ".xml" && ext != ".rss" && ext != ".atom" {
				continue
			}
			f, err := os.Open(member)
			if err != nil {
				zap.L().Warn("skipping unreadable archive member", zap.String("file", member), zap.Error(err))
				continue
			}
			parsed, err := feeds.ParseFeed(f)
			_ = f.Close()
			if err != nil {
				zap.L().Warn("skipping unparseable archive member", zap.String("file", member), zap.Error(err))
				continue
			}
			articles = append(articles, parsed...)
		}

		if len(articles) == 0 {
			zap.L().Warn("archive contained no articles")
			return nil
		}

		result, err := runOutreachBatch(ctx, dedupeArticles(articles))
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// -- outreach sync --

var outreachSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull review decisions from Notion into the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("outreach"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		reviewer := outreach.NewReviewer(notion.NewClient(cfg.Notion.Token), st, cfg.Notion.ReviewDB)
		approved, rejected, err := reviewer.SyncReviews(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("review sync complete",
			zap.Int("approved", approved),
			zap.Int("rejected", rejected),
		)
		return nil
	},
}

// -- outreach push --

var outreachPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push approved drafts to Salesforce as leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		o := pipeline.NewOutreach(cfg, st, nil, nil)
		pushed, err := o.PushApproved(ctx, sf)
		if err != nil {
			return err
		}

		zap.L().Info("push complete", zap.Int("leads", pushed))
		return nil
	},
}

// collectArticles fetches and parses each feed URL, deduplicating by
// article URL. A failing feed is logged and skipped so one dead host
// cannot block the batch.
func collectArticles(ctx context.Context, fetcher *feeds.HTTPFetcher, feedURLs []string) []model.Article {
	var articles []model.Article
	for _, feedURL := range feedURLs {
		body, err := fetcher.Download(ctx, feedURL)
		if err != nil {
			zap.L().Warn("feed fetch failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		parsed, err := feeds.ParseFeed(body)
		_ = body.Close()
		if err != nil {
			zap.L().Warn("feed parse failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		zap.L().Info("feed parsed", zap.String("feed", feedURL), zap.Int("articles", len(parsed)))
		articles = append(articles, parsed...)
	}
	return dedupeArticles(articles)
}

func dedupeArticles(articles []model.Article) []model.Article {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

// runOutreachBatch wires the store, generator, and Notion reviewer
// together and processes the articles.
func runOutreachBatch(ctx context.Context, articles []model.Article) (*pipeline.OutreachResult, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "migrate store")
	}

	reviewer := outreach.NewReviewer(notion.NewClient(cfg.Notion.Token), st, cfg.Notion.ReviewDB)
	o := pipeline.NewOutreach(cfg, st, initGenerator(), reviewer)

	result, err := o.RunBatch(ctx, articles)
	if err != nil {
		return nil, eris.Wrap(err, "outreach batch")
	}

	zap.L().Info("outreach batch complete",
		zap.Int("processed", result.Processed),
		zap.Int("drafted", result.Drafted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)),
	)
	for _, entry := range result.Failed {
		zap.L().Warn("article failed",
			zap.String("article", entry.Article.URL),
			zap.String("stage", entry.FailedStage),
			zap.String("error_type", entry.ErrorType),
			zap.String("error", entry.Error),
		)
	}
	return result, nil
}

func init() {
	outreachRunCmd.Flags().StringSliceVar(&outreachFeeds, "feed", nil, "RSS/Atom feed URL (repeatable, default from config)")

	outreachCmd.AddCommand(outreachRunCmd)
	outreachCmd.AddCommand(outreachArchiveCmd)
	outreachCmd.AddCommand(outreachSyncCmd)
	outreachCmd.AddCommand(outreachPushCmd)
	rootCmd.AddCommand(outreachCmd)
}
