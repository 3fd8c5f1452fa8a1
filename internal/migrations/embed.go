// Package migrations provides embedded SQL migrations and applies them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sql/*.sql
var files embed.FS

// Migrate applies every migration newer than the database's user_version,
// each in its own transaction. It returns the resulting schema version.
func Migrate(db *sql.DB) (int, error) {
	names, err := fs.Glob(files, "sql/*.sql")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	for i, name := range names {
		version := i + 1
		if version <= current {
			continue
		}
		body, err := files.ReadFile(name)
		if err != nil {
			return current, fmt.Errorf("read %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return current, fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return current, fmt.Errorf("apply %s: %w", name, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			_ = tx.Rollback()
			return current, fmt.Errorf("set schema version %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return current, fmt.Errorf("commit migration %d: %w", version, err)
		}
		current = version
	}
	return current, nil
}

// Latest returns the schema version Migrate brings a database to.
func Latest() int {
	names, _ := fs.Glob(files, "sql/*.sql")
	return len(names)
}
