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

	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "output", cfg.Store.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 4.5, cfg.Gateway.MinIntervalSecs, 0.001)
	assert.Equal(t, 3, cfg.Gateway.MaxAttempts)
	assert.Equal(t, 60, cfg.Gateway.InitialBackoffSecs)
	assert.Equal(t, 300, cfg.Gateway.MaxBackoffSecs)
	assert.Equal(t, 30000, cfg.Fetch.MaxChars)
	assert.Equal(t, 25, cfg.Fetch.RenderTimeoutSecs)
	assert.True(t, cfg.Fetch.Render)
	assert.Equal(t, DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, 15, cfg.Sitemap.TimeoutSecs)
	assert.Equal(t, 20, cfg.Sitemap.MaxChildSitemaps)
	assert.Equal(t, []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml", "/wp-sitemap.xml", "/page-sitemap.xml"}, cfg.Sitemap.Paths)
	assert.Equal(t, 10, cfg.Crawl.MaxCaseStudies)
	assert.Equal(t, 5, cfg.Crawl.MaxPricingPages)
	assert.Equal(t, 24, cfg.Crawl.CacheTTLHours)
	assert.Zero(t, cfg.Crawl.BreakerThreshold)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.NotEmpty(t, cfg.Anthropic.Models)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
crawl:
  max_case_studies: 2
  max_pricing_pages: 3
anthropic:
  models:
    - claude-sonnet-4-5-20250929
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Crawl.MaxCaseStudies)
	assert.Equal(t, 3, cfg.Crawl.MaxPricingPages)
	assert.Equal(t, []string{"claude-sonnet-4-5-20250929"}, cfg.Anthropic.Models)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Crawl.CacheTTLHours)
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

	t.Setenv("RESEARCH_STORE_DRIVER", "postgres")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

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

	t.Setenv("RESEARCH_SERVER_PORT", "3000")
	t.Setenv("RESEARCH_GATEWAY_MIN_INTERVAL_SECS", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.InDelta(t, 6.0, cfg.Gateway.MinIntervalSecs, 0.001)
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
	cfg.Anthropic.Models = []string{"claude-haiku-4-5-20251001"}
	cfg.Gateway.MinIntervalSecs = 4.5
	cfg.Gateway.MaxAttempts = 3
	cfg.Fetch.MaxChars = 30000
	cfg.Output.Format = "csv"
	cfg.Store.Driver = "file"
	cfg.Store.Dir = "output"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateResearch_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("research"))
}

func TestValidateResearch_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Models = nil
	cfg.Output.Format = "pdf"

	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "anthropic.models must not be empty")
	assert.Contains(t, err.Error(), "output.format")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("checkpoint")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/research"
	assert.NoError(t, cfg.Validate("checkpoint"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"

	err := cfg.Validate("checkpoint")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateModels(t *testing.T) {
	cfg := validDefaults()
	assert.Error(t, cfg.Validate("models"))

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("models"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	assert.Error(t, cfg.Validate("bogus"))
}
