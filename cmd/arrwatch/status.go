package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/api"
	"github.com/vmunix/arrwatch/internal/rename"
	"github.com/vmunix/arrwatch/internal/scan"
)

var statusCmd = &cobra.Command{
	Use:   "status [url]",
	Short: "Show scan state, or compare a series page with qBittorrent",
	Long: `Without arguments, list every series with its latest scan state.

With a series URL, list the episodes the page offers and whether each
one is already in qBittorrent. Nothing is added.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(serverURL)
		if len(args) == 0 {
			resp, err := client.Series()
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printOverview(cmd.OutOrStdout(), resp)
		}

		st, err := client.Status(args[0])
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		return printStatus(cmd.OutOrStdout(), st)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <url>",
	Short: "Show how downloaded files would be renamed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decisions, err := NewClient(serverURL).Preview(args[0])
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), decisions)
		}
		return printPreview(cmd.OutOrStdout(), decisions)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <url>",
	Short: "Rename the downloaded files of a series now",
	Long: `Apply the series' current name and season to every completed
torrent it owns. Use after 'arrwatch series set --name/--season'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := NewClient(serverURL).Rename(args[0])
		if err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Ref, resp.Message)
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, previewCmd, renameCmd)
}

func printOverview(w io.Writer, resp *api.ListSeriesResponse) error {
	if len(resp.Items) == 0 {
		_, err := fmt.Fprintln(w, "No series watched.")
		return err
	}
	rows := make([][]string, 0, len(resp.Items))
	for _, s := range resp.Items {
		state := "-"
		switch {
		case s.Phase != "" && s.Total > 0:
			state = fmt.Sprintf("%s %d/%d", s.Phase, s.Progress, s.Total)
		case s.Phase != "":
			state = s.Phase
		}
		if s.Scanning {
			state += " *"
		}
		rows = append(rows, []string{
			s.DisplayName,
			strconv.Itoa(s.Episodes),
			formatTime(s.LastUpdated),
			state,
			formatTime(s.StatusAt),
		})
	}
	_, err := fmt.Fprintln(w, renderTable(
		[]string{"Name", "Episodes", "Updated", "Last scan", "At"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	return err
}

func printStatus(w io.Writer, st *scan.SeriesStatus) error {
	rows := make([][]string, 0, len(st.Episodes))
	for _, ep := range st.Episodes {
		state := "new"
		switch {
		case ep.Completed:
			state = "complete"
		case ep.Acquired:
			state = fmt.Sprintf("%.0f%%", ep.Progress*100)
		}
		rows = append(rows, []string{
			ep.Name,
			ep.Quality,
			formatTime(ep.UpdatedAt),
			state,
			ep.Tag,
		})
	}
	if _, err := fmt.Fprintf(w, "%s (%s)\n", st.Name, st.Ref); err != nil {
		return err
	}
	if len(rows) > 0 {
		if _, err := fmt.Fprintln(w, renderTable(
			[]string{"Episode", "Quality", "Updated", "State", "Tag"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d in qBittorrent, %d new\n", st.Acquired, st.New)
	return err
}

func printPreview(w io.Writer, decisions []rename.Decision) error {
	if len(decisions) == 0 {
		_, err := fmt.Fprintln(w, "No torrents in the series save path.")
		return err
	}
	rows := make([][]string, 0, len(decisions))
	changed := 0
	for _, d := range decisions {
		to := "(unchanged)"
		if d.Changed {
			to = d.New
			changed++
		}
		rows = append(rows, []string{d.Hash[:min(8, len(d.Hash))], d.Old, to})
	}
	if _, err := fmt.Fprintln(w, renderTable([]string{"Torrent", "Current", "New"}, rows, nil)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d files would be renamed\n", changed, len(decisions))
	return err
}
