package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/api"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler [start|stop]",
	Short: "Show or toggle the interval trigger",
	Example: `  arrwatch scheduler
  arrwatch scheduler stop`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"start", "stop"},
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(serverURL)
		var (
			resp *api.SchedulerResponse
			err  error
		)
		switch {
		case len(args) == 0:
			resp, err = client.Scheduler()
		case args[0] == "start":
			resp, err = client.StartScheduler()
		default:
			resp, err = client.StopScheduler()
		}
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return printScheduler(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func printScheduler(w io.Writer, resp *api.SchedulerResponse) error {
	if jsonOutput {
		return printJSON(w, resp)
	}
	state := "stopped"
	if resp.Running {
		state = "running, every " + resp.Interval
	}
	if resp.Cycling {
		state += " (scan in progress)"
	}
	_, err := fmt.Fprintf(w, "Scheduler: %s\n", state)
	return err
}
