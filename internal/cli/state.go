package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rcliao/property-prefs/internal/model"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Export the profile and histories as JSON",
		RunE:  runExport,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Import a snapshot from JSON",
		Long:  "Replace the profile and histories with a snapshot read from stdin. Expects the format produced by export.",
		RunE:  runImport,
	})

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear the profile and both histories",
		RunE:  runReset,
	}
	reset.Flags().Bool("yes", false, "Confirm the reset (irreversible)")
	reset.MarkFlagRequired("yes")
	RootCmd.AddCommand(reset)

	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		RunE:  runStats,
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	return printJSON(cmd, eng.ExportState())
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, nil)
	if err != nil {
		return err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Import(cmd.Context(), snap); err != nil {
		return err
	}
	st := eng.ExportState()
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"views":%d,"purchases":%d}`+"\n", len(st.ViewHistory), len(st.PurchaseHistory))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true}`)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}
