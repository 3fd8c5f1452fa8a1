// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"time"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Version > CurrentVersion {
		errs = append(errs, fmt.Sprintf("version: unsupported config version %d (newest supported is %d)", c.Version, CurrentVersion))
	}

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// qBittorrent validation
	if c.QBittorrent.URL == "" {
		errs = append(errs, "qbittorrent.url: required")
	} else if u, err := url.Parse(c.QBittorrent.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("qbittorrent.url: must be an http(s) URL, got %q", c.QBittorrent.URL))
	}
	if c.QBittorrent.Timeout < 0 {
		errs = append(errs, "qbittorrent.timeout: must not be negative")
	}
	if c.QBittorrent.SettleTimeout < 0 {
		errs = append(errs, "qbittorrent.settle_timeout: must not be negative")
	}

	// Scan validation
	if c.Scan.Interval != 0 && c.Scan.Interval < time.Minute {
		errs = append(errs, fmt.Sprintf("scan.interval: must be at least 1m, got %s", c.Scan.Interval))
	}
	if c.Scan.PollInterval < 0 {
		errs = append(errs, "scan.poll_interval: must not be negative")
	}
	if c.Scan.CompletionTimeout < 0 {
		errs = append(errs, "scan.completion_timeout: must not be negative (0 disables)")
	}
	if c.Scan.Concurrency < 0 || c.Scan.Concurrency > 32 {
		errs = append(errs, fmt.Sprintf("scan.concurrency: must be between 1 and 32, got %d", c.Scan.Concurrency))
	}

	// Sources validation
	if c.Sources.Retries < 0 {
		errs = append(errs, "sources.retries: must not be negative")
	}
	if c.Sources.CacheSize < 0 {
		errs = append(errs, "sources.cache_size: must not be negative")
	}

	if c.Events.Retention < 0 {
		errs = append(errs, "events.retention: must not be negative (0 keeps events forever)")
	}

	return errs
}
