// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// CurrentVersion is the newest config layout this build understands.
const CurrentVersion = 1

// Config is the root configuration structure.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	QBittorrent QBittorrentConfig `toml:"qbittorrent"`
	Scan        ScanConfig        `toml:"scan"`
	Sources     SourcesConfig     `toml:"sources"`
	Events      EventsConfig      `toml:"events"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// Addr returns host:port for the ops API listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type QBittorrentConfig struct {
	URL           string        `toml:"url"`
	Username      string        `toml:"username"`
	Password      string        `toml:"password"`
	Timeout       time.Duration `toml:"timeout"`
	SettleTimeout time.Duration `toml:"settle_timeout"`
}

type ScanConfig struct {
	Interval          time.Duration `toml:"interval"`
	PollInterval      time.Duration `toml:"poll_interval"`
	CompletionTimeout time.Duration `toml:"completion_timeout"` // 0 waits forever
	Concurrency       int           `toml:"concurrency"`
	AutoStart         bool          `toml:"auto_start"`
}

type SourcesConfig struct {
	UserAgent string        `toml:"user_agent"`
	Retries   int           `toml:"retries"`
	Timeout   time.Duration `toml:"timeout"`
	CacheSize int           `toml:"cache_size"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
}

type EventsConfig struct {
	Retention time.Duration `toml:"retention"` // 0 keeps events forever
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(func(...string) bool { return false })
	return cfg
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadWithoutValidation reads and parses the configuration file, skipping
// validation. Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, validate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults(md.IsDefined)

	if validate {
		if errs := cfg.Validate(); len(errs) > 0 {
			return nil, &ConfigError{Path: path, Errors: errs}
		}
	}
	return &cfg, nil
}

// applyDefaults fills unset fields. defined reports whether a key was set
// explicitly, so that an explicit zero can mean "disabled".
func (c *Config) applyDefaults(defined func(key ...string) bool) {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8585
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/arrwatch.db"
	}

	if c.QBittorrent.URL == "" {
		c.QBittorrent.URL = "http://localhost:8080"
	}
	if c.QBittorrent.Timeout == 0 {
		c.QBittorrent.Timeout = 30 * time.Second
	}
	if c.QBittorrent.SettleTimeout == 0 {
		c.QBittorrent.SettleTimeout = 10 * time.Second
	}

	if c.Scan.Interval == 0 {
		c.Scan.Interval = 30 * time.Minute
	}
	if c.Scan.PollInterval == 0 {
		c.Scan.PollInterval = 10 * time.Second
	}
	if c.Scan.CompletionTimeout == 0 && !defined("scan", "completion_timeout") {
		c.Scan.CompletionTimeout = 12 * time.Hour
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 2
	}
	if !defined("scan", "auto_start") {
		c.Scan.AutoStart = true
	}

	if c.Sources.Retries == 0 {
		c.Sources.Retries = 3
	}
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = 30 * time.Second
	}
	if c.Sources.CacheSize == 0 {
		c.Sources.CacheSize = 64
	}
	if c.Sources.CacheTTL == 0 {
		c.Sources.CacheTTL = time.Hour
	}

	if c.Events.Retention == 0 && !defined("events", "retention") {
		c.Events.Retention = 30 * 24 * time.Hour
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment references outside comments.
// Unresolved references are left in place and reported in missing.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		cut := commentStart(line)
		lines[i] = envVarPattern.ReplaceAllStringFunc(line[:cut], func(match string) string {
			value, miss := resolveEnvVar(match)
			if miss != "" {
				missing = append(missing, miss)
			}
			return value
		}) + line[cut:]
	}
	return strings.Join(lines, ""), missing
}

// resolveEnvVar expands one reference. An unresolved reference is returned
// unchanged along with its report entry.
func resolveEnvVar(match string) (string, string) {
	parts := envVarPattern.FindStringSubmatch(match)
	name, op, arg := parts[1], parts[2], parts[3]
	value, ok := os.LookupEnv(name)

	switch op {
	case ":-":
		if !ok || value == "" {
			return arg, ""
		}
		return value, ""
	case ":?":
		if !ok || value == "" {
			return match, name + ": " + strings.TrimSpace(arg)
		}
		return value, ""
	}
	if !ok {
		return match, name
	}
	return value, ""
}

// commentStart returns the index of the first '#' outside a TOML string on
// line, or len(line).
func commentStart(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == 0 && c == '#':
			return i
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == '"' && c == '\\':
			i++
		case c == quote:
			quote = 0
		}
	}
	return len(line)
}
