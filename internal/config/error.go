package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidConfig matches every *ConfigError with errors.Is.
var ErrInvalidConfig = errors.New("invalid config")

// ConfigError aggregates the problems found while loading one config file.
type ConfigError struct {
	Path    string   // Config file path
	Missing []string // Unresolved environment variables
	Errors  []string // Validation messages, each prefixed with its key
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	b.WriteString("config")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	b.WriteString(":")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " missing environment variables: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Errors) > 0 {
		b.WriteString(" validation failed:")
		for _, msg := range e.Errors {
			b.WriteString("\n  - ")
			b.WriteString(msg)
		}
	}
	return b.String()
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// HasErrors returns true if there are any errors.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

// Keys returns the sorted config keys that failed validation, e.g.
// "scan.interval".
func (e *ConfigError) Keys() []string {
	seen := make(map[string]bool, len(e.Errors))
	keys := make([]string, 0, len(e.Errors))
	for _, msg := range e.Errors {
		key, _, ok := strings.Cut(msg, ":")
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
