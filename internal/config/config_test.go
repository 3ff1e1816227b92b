package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/property-prefs/internal/recommend"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.yaml")
	yml := `
store:
  backend: badger
  path: /tmp/prefs
tracker:
  view_history_cap: 20
recommend:
  weights:
    type: 12
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("PROPERTY_PREFS_RECOMMEND_DEFAULT_LIMIT", "9")
	t.Setenv("PROPERTY_PREFS_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "badger", cfg.Store.Backend)
	require.Equal(t, "/tmp/prefs", cfg.Store.Path)
	require.Equal(t, 20, cfg.Tracker.ViewHistoryCap)
	require.Equal(t, 500, cfg.Tracker.PurchaseHistoryCap)
	require.Equal(t, 12.0, cfg.Recommend.Weights.Type)
	require.Equal(t, 8.0, cfg.Recommend.Weights.Location)
	require.Equal(t, 9, cfg.Recommend.DefaultLimit)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadWeightsFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PROPERTY_PREFS_RECOMMEND_WEIGHTS_PRICE_FIT", "25")
	t.Setenv("PROPERTY_PREFS_RECOMMEND_WEIGHTS_RECENTLY_VIEWED", "-2")

	cfg, err := Load("")
	require.NoError(t, err)

	want := recommend.DefaultWeights()
	want.PriceFit = 25
	want.RecentlyViewed = -2
	require.Equal(t, want, cfg.Recommend.Weights)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"view cap", func(c *Config) { c.Tracker.ViewHistoryCap = 0 }},
		{"purchase cap", func(c *Config) { c.Tracker.PurchaseHistoryCap = -1 }},
		{"limit", func(c *Config) { c.Recommend.DefaultLimit = 0 }},
		{"negative weight", func(c *Config) { c.Recommend.Weights.Type = -1 }},
		{"positive penalty", func(c *Config) { c.Recommend.Weights.RecentlyViewed = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, Default().Validate())
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
