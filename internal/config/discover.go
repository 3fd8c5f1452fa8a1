package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar names the environment variable that overrides discovery.
const EnvVar = "ARRWATCH_CONFIG"

// ErrNotFound is returned by Discover when no config file exists.
var ErrNotFound = errors.New("config not found")

// DefaultPath returns $XDG_CONFIG_HOME/arrwatch/config.toml, falling back to
// ~/.config.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "arrwatch", "config.toml")
}

// SearchPaths lists the locations Discover tries, in order.
func SearchPaths() []string {
	return []string{
		"./config.toml",
		DefaultPath(),
		"/etc/arrwatch/config.toml",
	}
}

// Discover returns the config file to use: $ARRWATCH_CONFIG when set (it
// must exist), otherwise the first regular file among SearchPaths.
func Discover() (string, error) {
	if envPath := os.Getenv(EnvVar); envPath != "" {
		if err := checkFile(envPath); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvVar, envPath, err)
		}
		return envPath, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if checkFile(p) == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w, checked: %s (create one with 'arrwatch init')", ErrNotFound, strings.Join(paths, ", "))
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
