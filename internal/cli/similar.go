package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/property-prefs/internal/catalog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "List catalog properties similar to one property",
		RunE:  runSimilar,
	}

	cmd.Flags().String("catalog", "", "Catalog JSON file (required)")
	cmd.Flags().String("id", "", "Target property id (required)")
	cmd.Flags().IntP("limit", "l", 0, "Max results (default from config)")

	cmd.MarkFlagRequired("catalog")
	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("catalog")
	id, _ := cmd.Flags().GetString("id")
	limit, _ := cmd.Flags().GetInt("limit")

	candidates, err := catalog.File{Path: path}.Properties(cmd.Context())
	if err != nil {
		return err
	}

	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	similar, err := eng.GetSimilarProperties(id, candidates, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, similar)
}
