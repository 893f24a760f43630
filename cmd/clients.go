package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/feeds"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/resilience"
	"github.com/sells-group/studio-cli/internal/store"
	anthropicpkg "github.com/sells-group/studio-cli/pkg/anthropic"
	sfpkg "github.com/sells-group/studio-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "studio.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGenerator builds the Claude-backed generator used by both the
// planning pipeline and the outreach agents.
func initGenerator() planner.Generator {
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	return planner.NewClaudeGenerator(client, planner.GeneratorConfig{
		Model:       cfg.Anthropic.SonnetModel,
		CallTimeout: time.Duration(cfg.Planner.CallTimeoutSecs) * time.Second,
		Retry:       resilience.FromRetryConfig(cfg.Planner.MaxRetries, 500, 30000, 2.0, 0.25),
	})
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (STUDIO_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

func newFeedFetcher() *feeds.HTTPFetcher {
	return feeds.NewHTTPFetcher(feeds.HTTPOptions{
		Timeout:       time.Duration(cfg.Feeds.TimeoutSecs) * time.Second,
		RatePerSecond: cfg.Feeds.RatePerSecond,
		Retry:         resilience.DefaultRetryConfig(),
		Circuit:       resilience.DefaultCircuitBreakerConfig(),
	})
}
