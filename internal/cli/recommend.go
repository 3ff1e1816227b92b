package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/property-prefs/internal/catalog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank a catalog against the preference profile",
		RunE:  runRecommend,
	}

	cmd.Flags().String("catalog", "", "Catalog JSON file (required)")
	cmd.Flags().IntP("limit", "l", 0, "Max results (default from config)")
	cmd.Flags().Bool("explain", false, "Include the per-term score breakdown")

	cmd.MarkFlagRequired("catalog")

	RootCmd.AddCommand(cmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("catalog")
	limit, _ := cmd.Flags().GetInt("limit")
	explain, _ := cmd.Flags().GetBool("explain")

	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	src := catalog.File{Path: path}
	if explain {
		candidates, err := src.Properties(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, eng.ExplainRecommendations(candidates, limit))
	}

	recs, err := eng.RecommendFrom(cmd.Context(), src, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, recs)
}
