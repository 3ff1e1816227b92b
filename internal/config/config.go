// Package config loads property-prefs settings from defaults, an optional
// YAML file and PROPERTY_PREFS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rcliao/property-prefs/internal/recommend"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// PROPERTY_PREFS_STORE_BACKEND -> store.backend.
const EnvPrefix = "PROPERTY_PREFS_"

// PathEnvVar overrides the config file location.
const PathEnvVar = "PROPERTY_PREFS_CONFIG"

// DefaultPaths are searched in order when no explicit path is given.
var DefaultPaths = []string{
	"property-prefs.yaml",
	"property-prefs.yml",
}

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Tracker   TrackerConfig   `koanf:"tracker"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// StoreConfig selects the durable backend.
type StoreConfig struct {
	// Backend is sqlite or badger.
	Backend string `koanf:"backend"`
	// Path is the sqlite file or badger directory. Empty means the home default.
	Path string `koanf:"path"`
}

// TrackerConfig bounds the history logs.
type TrackerConfig struct {
	ViewHistoryCap     int `koanf:"view_history_cap"`
	PurchaseHistoryCap int `koanf:"purchase_history_cap"`
}

// RecommendConfig holds the ranking parameters.
type RecommendConfig struct {
	DefaultLimit int               `koanf:"default_limit"`
	Weights      recommend.Weights `koanf:"weights"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Tracker: TrackerConfig{
			ViewHistoryCap:     50,
			PurchaseHistoryCap: 500,
		},
		Recommend: RecommendConfig{
			DefaultLimit: 5,
			Weights:      recommend.DefaultWeights(),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
		},
	}
}

// Load layers defaults, the config file at path (or the first default path
// found) and environment variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if p := findFile(path); p != "" {
		if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", p, err)
		}
	} else if path != "" {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// sectionKeys lists multi-word leaf keys so env names can be mapped back to
// koanf paths without ambiguity.
var sectionKeys = map[string]string{
	"tracker_view_history_cap":          "tracker.view_history_cap",
	"tracker_purchase_history_cap":      "tracker.purchase_history_cap",
	"recommend_default_limit":           "recommend.default_limit",
	"recommend_weights_price_fit":       "recommend.weights.price_fit",
	"recommend_weights_recently_viewed": "recommend.weights.recently_viewed",
	"recommend_weights_new_week":        "recommend.weights.new_week",
	"recommend_weights_new_three_days":  "recommend.weights.new_three_days",
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if mapped, ok := sectionKeys[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "_", ".")
}

func findFile(path string) string {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("store.backend must be sqlite or badger, got %q", c.Store.Backend)
	}
	if c.Tracker.ViewHistoryCap < 1 {
		return fmt.Errorf("tracker.view_history_cap must be positive, got %d", c.Tracker.ViewHistoryCap)
	}
	if c.Tracker.PurchaseHistoryCap < 1 {
		return fmt.Errorf("tracker.purchase_history_cap must be positive, got %d", c.Tracker.PurchaseHistoryCap)
	}
	if c.Recommend.DefaultLimit < 1 {
		return fmt.Errorf("recommend.default_limit must be positive, got %d", c.Recommend.DefaultLimit)
	}
	w := c.Recommend.Weights
	if w.Type < 0 || w.Location < 0 || w.PriceFit < 0 || w.NewWeek < 0 || w.NewThreeDays < 0 {
		return fmt.Errorf("recommend.weights must be non-negative (except recently_viewed)")
	}
	if w.RecentlyViewed > 0 {
		return fmt.Errorf("recommend.weights.recently_viewed must be a penalty (<= 0), got %v", w.RecentlyViewed)
	}
	return nil
}

// DefaultDBPath returns the home-directory store location for the backend.
func DefaultDBPath(backend string) string {
	home, _ := os.UserHomeDir()
	if backend == "badger" {
		return filepath.Join(home, ".property-prefs", "badger")
	}
	return filepath.Join(home, ".property-prefs", "prefs.db")
}
