package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, DefaultPath(), filepath.Join(".config", "arrwatch", "config.toml"))

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/arrwatch/config.toml", DefaultPath())
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, []string{
		"./config.toml",
		"/xdg/arrwatch/config.toml",
		"/etc/arrwatch/config.toml",
	}, SearchPaths())
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0644))
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string // returns the expected path
		wantErr error
	}{
		{
			name: "env var",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "custom.toml")
				writeFile(t, p)
				writeFile(t, filepath.Join(dir, "config.toml"))
				t.Setenv(EnvVar, p)
				return p
			},
		},
		{
			name: "current dir",
			setup: func(t *testing.T, dir string) string {
				writeFile(t, filepath.Join(dir, "config.toml"))
				return "./config.toml"
			},
		},
		{
			name: "xdg",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "xdg", "arrwatch", "config.toml")
				writeFile(t, p)
				t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
				return p
			},
		},
		{
			name: "directory is skipped",
			setup: func(t *testing.T, dir string) string {
				require.NoError(t, os.Mkdir(filepath.Join(dir, "config.toml"), 0755))
				return ""
			},
			wantErr: ErrNotFound,
		},
		{
			name:    "nothing",
			setup:   func(*testing.T, string) string { return "" },
			wantErr: ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			t.Setenv(EnvVar, "")
			t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "no-xdg"))

			want := tt.setup(t, dir)
			got, err := Discover()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "arrwatch init")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDiscover_EnvVarMissing(t *testing.T) {
	t.Setenv(EnvVar, "/nonexistent/config.toml")

	_, err := Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvVar)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
