package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed default_config.toml
var defaultConfig string

// ErrExists is returned by WriteDefault when the target file exists.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes the example config to the specified path.
// Creates parent directories if needed. An existing file is only replaced
// when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Encode writes the config as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Redacted returns a copy of the config with secrets masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.QBittorrent.Password != "" {
		cp.QBittorrent.Password = redacted
	}
	return &cp
}

const redacted = "********"
