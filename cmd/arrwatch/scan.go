package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/api"
)

var scanCmd = &cobra.Command{
	Use:   "scan [url]",
	Short: "Scan one series, or all of them, now",
	Long: `Ask the daemon to scan now. The scan runs in the background;
follow it with 'arrwatch events --since 10m'.`,
	Example: `  arrwatch scan
  arrwatch scan https://astar.bz/torrents/show.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		resp, err := NewClient(serverURL).Scan(ref)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		return printScan(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func printScan(w io.Writer, resp *api.ScanResponse) error {
	if jsonOutput {
		return printJSON(w, resp)
	}
	if !resp.Started {
		_, err := fmt.Fprintf(w, "Not started: %s\n", resp.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "Started: %s\n", resp.Message)
	return err
}
