package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/api"
	"github.com/vmunix/arrwatch/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent scan events",
	Example: `  arrwatch events
  arrwatch events --since 1h --ref https://astar.bz/torrents/show.html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var f EventFilter
		f.Since, _ = cmd.Flags().GetString("since")
		f.Ref, _ = cmd.Flags().GetString("ref")
		f.Run, _ = cmd.Flags().GetString("run")
		f.Limit, _ = cmd.Flags().GetInt("limit")

		resp, err := NewClient(serverURL).Events(f)
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		return printEvents(cmd.OutOrStdout(), resp)
	},
}

func init() {
	eventsCmd.Flags().String("since", "", "RFC 3339 time or duration, e.g. 30m")
	eventsCmd.Flags().String("ref", "", "Only events of this series")
	eventsCmd.Flags().String("run", "", "Only events of this scan run")
	eventsCmd.Flags().Int("limit", 50, "Maximum events without --since or --ref")
	rootCmd.AddCommand(eventsCmd)
}

func describeEvent(e events.RawEvent) string {
	ev, err := events.Decode(e)
	if err != nil {
		return e.Payload
	}
	switch v := ev.(type) {
	case *events.StatusUpdate:
		return fmt.Sprintf("%s %d/%d %s", v.Phase, v.Progress, v.Total, v.Message)
	case *events.Notification:
		return fmt.Sprintf("[%s] %s", v.Severity, v.Message)
	default:
		return e.Payload
	}
}

func printEvents(w io.Writer, resp *api.ListEventsResponse) error {
	if len(resp.Items) == 0 {
		_, err := fmt.Fprintln(w, "No events.")
		return err
	}
	rows := make([][]string, 0, len(resp.Items))
	for _, e := range resp.Items {
		rows = append(rows, []string{
			e.OccurredAt.Local().Format("2006-01-02 15:04:05"),
			e.EventType,
			describeEvent(e),
		})
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"Time", "Type", "Event"}, rows, nil))
	return err
}
