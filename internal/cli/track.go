package cli

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rcliao/property-prefs/internal/events"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "view [json]",
		Short: "Record a property view",
		Long:  `Record a PropertyViewed event, e.g. {"id":"42","type":"villa","price":900,"location":"riyadh"}. Reads stdin when no arg is given.`,
		RunE:  runView,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "book [json]",
		Short: "Record a property booking",
		Long:  `Record a PropertyBooked event, e.g. {"id":"42","type":"villa","price":900}. Reads stdin when no arg is given.`,
		RunE:  runBook,
	})
}

type trackResult struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
	ID      string `json:"id"`
}

func runView(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	var ev events.PropertyViewed
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}

	eng, em, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	ev, err = em.EmitViewed(cmd.Context(), ev)
	if err != nil {
		return err
	}
	return printJSON(cmd, trackResult{OK: true, EventID: ev.EventID, ID: ev.ID})
}

func runBook(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	var ev events.PropertyBooked
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}

	eng, em, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	ev, err = em.EmitBooked(cmd.Context(), ev)
	if err != nil {
		return err
	}
	return printJSON(cmd, trackResult{OK: true, EventID: ev.EventID, ID: ev.ID})
}
