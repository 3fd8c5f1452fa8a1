package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/config"
)

var version = "dev"

var (
	serverURL  string
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "arrwatch",
	Short: "CLI client for the arrwatch torrent series watcher",
	Long: `arrwatch - CLI client for the arrwatch torrent series watcher

Manage the watched series, trigger scans and inspect what the
daemon would download or rename.

Run 'arrwatchd' to start the daemon.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8585", "Daemon URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("arrwatch {{.Version}}\n")
}

// loadConfig reads the config named by --config, or the discovered one.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.Discover()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.Load(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
