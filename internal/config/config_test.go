package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "studio.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.SonnetModel)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, "personal_finance", cfg.Workspace.VerticalID)
	assert.InDelta(t, 8.0, cfg.Workspace.CPMBaseline, 0.001)
	assert.Equal(t, 3, cfg.Planner.MaxExpandAttempts)
	assert.Equal(t, 60, cfg.Planner.CallTimeoutSecs)
	assert.Equal(t, 5, cfg.Outreach.MaxConcurrentArticles)
	assert.InDelta(t, 0.6, cfg.Outreach.FitThreshold, 0.001)
	assert.InDelta(t, 2.0, cfg.Feeds.RatePerSecond, 0.001)
	assert.Equal(t, 30, cfg.Feeds.TimeoutSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/studio
log:
  level: debug
  format: console
server:
  port: 9090
workspace:
  vertical_id: fitness
  cpm_baseline: 4.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "fitness", cfg.Workspace.VerticalID)
	assert.InDelta(t, 4.5, cfg.Workspace.CPMBaseline, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Planner.MaxExpandAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("STUDIO_STORE_DRIVER", "postgres")
	t.Setenv("STUDIO_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("STUDIO_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Planner.MaxExpandAttempts = 3
	cfg.Outreach.MaxConcurrentArticles = 5
	cfg.Outreach.FitThreshold = 0.6
	cfg.Server.Port = 8080
	return cfg
}

func TestValidatePlan_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.DatabaseURL = "studio.db"

	assert.NoError(t, cfg.Validate("plan"))
}

func TestValidatePlan_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("plan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateOutreach_NeedsNotion(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.DatabaseURL = "studio.db"

	err := cfg.Validate("outreach")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.review_db is required")

	cfg.Notion.Token = "ntn_token"
	cfg.Notion.ReviewDB = "review-db-id"
	assert.NoError(t, cfg.Validate("outreach"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Planner.MaxExpandAttempts = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_expand_attempts must be between 1 and 10")

	cfg.Planner.MaxExpandAttempts = 3
	cfg.Outreach.FitThreshold = 1.5
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fit_threshold must be in [0,1]")

	cfg.Outreach.FitThreshold = 0.6
	cfg.Outreach.MaxConcurrentArticles = 51
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_articles must be between 1 and 50")

	cfg.Outreach.MaxConcurrentArticles = 5
	cfg.Workspace.CPMBaseline = -1
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cpm_baseline must be >= 0")

	cfg.Workspace.CPMBaseline = 8
	assert.NoError(t, cfg.Validate("serve"))
}
