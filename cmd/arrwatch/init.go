package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrwatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write the default config file to --config, or ./config.toml.

The qBittorrent password is read from QBITTORRENT_PASSWORD when the
config is loaded, so it does not need to be stored in the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := configPath
		if path == "" {
			path = "config.toml"
		}
		return writeConfig(cmd.OutOrStdout(), path, force)
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func writeConfig(w io.Writer, path string, force bool) error {
	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, config.ErrExists) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}
	_, err := fmt.Fprintf(w, "Wrote %s\nEdit the [qbittorrent] section, then run 'arrwatchd -config %s'.\n", path, path)
	return err
}
