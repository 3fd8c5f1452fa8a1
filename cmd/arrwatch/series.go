package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/database"
	"github.com/vmunix/arrwatch/internal/registry"
	"github.com/vmunix/arrwatch/internal/source"
	"github.com/vmunix/arrwatch/internal/source/builtin"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Manage watched series",
	Long: `Manage the watched series.

These commands work directly on the database named in the config file,
so they do not need the daemon to be running.`,
}

var seriesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Watch a series page",
	Example: `  arrwatch series add https://astar.bz/torrents/show.html --name "Show" --path /media/show --season S01
  arrwatch series add https://anilibria.top/release/show.html --name "Show" --path /media/show --quality 1080p`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := addOptions{Ref: args[0]}
		opts.Name, _ = cmd.Flags().GetString("name")
		opts.SavePath, _ = cmd.Flags().GetString("path")
		opts.Season, _ = cmd.Flags().GetString("season")
		opts.Quality, _ = cmd.Flags().GetString("quality")
		noRename, _ := cmd.Flags().GetBool("no-rename")
		opts.Rename = !noRename

		return withRegistry(func(store *registry.Store) error {
			return seriesAdd(cmd.Context(), store, opts, cmd.OutOrStdout())
		})
	},
}

var seriesRemoveCmd = &cobra.Command{
	Use:     "remove <url>",
	Aliases: []string{"rm"},
	Short:   "Stop watching a series",
	Long: `Stop watching a series. Torrents already added to qBittorrent
are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(store *registry.Store) error {
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return err
		})
	},
}

var seriesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watched series",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRegistry(func(store *registry.Store) error {
			return seriesList(cmd.Context(), store, cmd.OutOrStdout(), jsonOutput)
		})
	},
}

var seriesSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Change the settings of a series",
	Long: `Change the settings of a series. Only the flags given are changed.

After changing --name or --season, run 'arrwatch rename <url>' to
apply the new names to files that are already downloaded.`,
	Example: `  arrwatch series set https://astar.bz/torrents/show.html --season S02
  arrwatch series set https://astar.bz/torrents/show.html --rename=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		return withRegistry(func(store *registry.Store) error {
			s, err := store.Update(cmd.Context(), args[0], settings)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", s.Ref)
			return err
		})
	},
}

func init() {
	seriesAddCmd.Flags().String("name", "", "Display name used in file names (required)")
	seriesAddCmd.Flags().String("path", "", "qBittorrent save path (required)")
	seriesAddCmd.Flags().String("season", "S01", "Season label used in file names")
	seriesAddCmd.Flags().String("quality", "", "Only take releases of this quality")
	seriesAddCmd.Flags().Bool("no-rename", false, "Leave downloaded file names as they are")
	_ = seriesAddCmd.MarkFlagRequired("name")
	_ = seriesAddCmd.MarkFlagRequired("path")

	defineSetFlags(seriesSetCmd)

	seriesCmd.AddCommand(seriesAddCmd, seriesRemoveCmd, seriesListCmd, seriesSetCmd)
	rootCmd.AddCommand(seriesCmd)
}

func defineSetFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("path", "", "Save path")
	cmd.Flags().String("season", "", "Season label")
	cmd.Flags().String("quality", "", "Quality filter (empty string clears it)")
	cmd.Flags().Bool("rename", true, "Rename downloaded files")
}

// withRegistry opens the configured database for the duration of fn.
func withRegistry(fn func(*registry.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(registry.NewStore(db))
}

type addOptions struct {
	Ref      string
	Name     string
	SavePath string
	Season   string
	Quality  string
	Rename   bool
}

func seriesAdd(ctx context.Context, store *registry.Store, opts addOptions, out io.Writer) error {
	ref := strings.TrimSpace(opts.Ref)
	resolver := builtin.NewResolver(source.NewFetcher(source.FetcherConfig{}, nil), nil)
	if _, err := resolver.Resolve(ref); err != nil {
		return fmt.Errorf("%w (supported: %s)", err, strings.Join(resolver.Hosts(), ", "))
	}

	s := &registry.Series{
		Ref:           ref,
		SavePath:      opts.SavePath,
		DisplayName:   opts.Name,
		Season:        opts.Season,
		Quality:       opts.Quality,
		RenameEnabled: opts.Rename,
	}
	if err := store.Add(ctx, s); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("%s is already watched; use 'arrwatch series set' to change it", ref)
		}
		return err
	}
	_, err := fmt.Fprintf(out, "Watching %s as %q\n", ref, s.DisplayName)
	return err
}

func seriesList(ctx context.Context, store *registry.Store, out io.Writer, asJSON bool) error {
	series, err := store.List(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, series)
	}
	if len(series) == 0 {
		_, err := fmt.Fprintln(out, "No series watched. Add one with 'arrwatch series add'.")
		return err
	}

	rows := make([][]string, 0, len(series))
	for _, s := range series {
		rows = append(rows, []string{
			s.DisplayName,
			s.Season,
			strconv.Itoa(len(s.Tags)),
			formatTime(s.LastUpdated),
			yesNo(s.RenameEnabled),
			s.Ref,
		})
	}
	_, err = fmt.Fprintln(out, renderTable(
		[]string{"Name", "Season", "Episodes", "Updated", "Rename", "URL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	return err
}

// settingsFromFlags turns the flags the user set into a partial update.
func settingsFromFlags(cmd *cobra.Command) (registry.Settings, error) {
	var s registry.Settings
	str := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	s.DisplayName = str("name")
	s.SavePath = str("path")
	s.Season = str("season")
	s.Quality = str("quality")
	if cmd.Flags().Changed("rename") {
		v, _ := cmd.Flags().GetBool("rename")
		s.RenameEnabled = &v
	}
	if s == (registry.Settings{}) {
		return s, errors.New("nothing to change; pass at least one flag")
	}
	return s, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
