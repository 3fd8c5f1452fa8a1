package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arrwatch", "config.toml")

	require.NoError(t, WriteDefault(path, false))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{"[server]", "[database]", "[qbittorrent]", "[scan]", "[sources]", "[events]"} {
		assert.Contains(t, string(content), section)
	}
	assert.Contains(t, string(content), "${QBITTORRENT_PASSWORD:-}")
}

func TestWriteDefault_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Scan.Interval)
	assert.Equal(t, 720*time.Hour, cfg.Events.Retention)
}

func TestWriteDefault_NoOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0644))

	err := WriteDefault(path, false)
	require.ErrorIs(t, err, ErrExists)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine\n", string(content))

	require.NoError(t, WriteDefault(path, true))
	content, _ = os.ReadFile(path)
	assert.Contains(t, string(content), "[scan]")
}

func TestConfig_Encode(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 9000
	cfg.QBittorrent.URL = "http://seedbox:8080"

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, loaded.Server.Port)
	assert.Equal(t, "http://seedbox:8080", loaded.QBittorrent.URL)
	assert.Equal(t, cfg.Scan.Interval, loaded.Scan.Interval)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Redacted().QBittorrent.Password)

	cfg.QBittorrent.Password = "hunter2"
	r := cfg.Redacted()
	assert.Equal(t, redacted, r.QBittorrent.Password)
	assert.Equal(t, "hunter2", cfg.QBittorrent.Password)
}
