// Package cli implements the property-prefs CLI commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rcliao/property-prefs/internal/config"
	"github.com/rcliao/property-prefs/internal/engine"
	"github.com/rcliao/property-prefs/internal/events"
	"github.com/rcliao/property-prefs/internal/logging"
	"github.com/rcliao/property-prefs/internal/store"
)

var (
	dbPath     string
	backend    string
	configPath string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "property-prefs",
	Short:        "Personal property recommendations from local browsing history",
	Long:         "Tracks property views and bookings, keeps a preference profile on disk, and ranks a catalog against it.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Store path (default: $PROPERTY_PREFS_DB or ~/.property-prefs/)")
	RootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Store backend: sqlite or badger (default from config)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $PROPERTY_PREFS_CONFIG or ./property-prefs.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("PROPERTY_PREFS_DB"); env != "" {
		return env
	}
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return config.DefaultDBPath(cfg.Store.Backend)
}

// openEngine builds the engine and an emitter it is subscribed to.
func openEngine(cmd *cobra.Command) (*engine.Engine, *events.Emitter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})

	st, err := store.Open(cfg.Store.Backend, getDBPath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	eng, err := engine.New(cmd.Context(), st, cfg, logging.Logger())
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	em := events.NewEmitter(nil)
	eng.Subscribe(em)
	return eng, em, nil
}

// readInput returns the positional args joined, or stdin when piped.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(strings.Join(args, " ")), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, _ := f.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("input is required (positional arg or stdin)")
		}
	}
	return io.ReadAll(in)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
