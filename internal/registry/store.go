package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const lastScanKey = "last_scan"

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is the SQLite-backed series registry. Writes to one series are
// serialized: each read-modify-write holds the series lock for its whole
// transaction.
type Store struct {
	db    *sql.DB
	locks *keyedMutex
	now   func() time.Time
}

// NewStore creates a registry on a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownSeries
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	return err
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Add registers a new series. Returns ErrDuplicate if ref is taken.
func (s *Store) Add(ctx context.Context, series *Series) error {
	series.Ref = strings.TrimSpace(series.Ref)
	if err := series.validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(series.Ref)
	defer unlock()

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO series (ref, save_path, series_name, season, quality, rename_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		series.Ref, series.SavePath, series.DisplayName, series.Season, series.Quality,
		series.RenameEnabled, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert series %s: %w", series.Ref, mapSQLiteError(err))
	}
	series.CreatedAt = now
	series.UpdatedAt = now
	if series.Markers == nil {
		series.Markers = map[string]time.Time{}
	}
	return nil
}

const selectSeries = `
	SELECT ref, save_path, series_name, season, quality, rename_enabled, last_updated, created_at, updated_at
	FROM series`

func scanSeries(row interface{ Scan(...any) error }) (*Series, error) {
	var (
		sr                         Series
		last, createdAt, updatedAt sql.NullString
	)
	if err := row.Scan(&sr.Ref, &sr.SavePath, &sr.DisplayName, &sr.Season, &sr.Quality,
		&sr.RenameEnabled, &last, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sr.LastUpdated = parseTime(last)
	sr.CreatedAt = parseTime(createdAt)
	sr.UpdatedAt = parseTime(updatedAt)
	sr.Markers = map[string]time.Time{}
	return &sr, nil
}

func getSeries(ctx context.Context, q querier, ref string) (*Series, error) {
	sr, err := scanSeries(q.QueryRowContext(ctx, selectSeries+` WHERE ref = ?`, ref))
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", ref, mapSQLiteError(err))
	}
	if err := loadEpisodes(ctx, q, map[string]*Series{sr.Ref: sr}, `WHERE series_ref = ?`, ref); err != nil {
		return nil, err
	}
	return sr, nil
}

func loadEpisodes(ctx context.Context, q querier, bySeries map[string]*Series, where string, args ...any) error {
	rows, err := q.QueryContext(ctx, `
		SELECT series_ref, tag, last_updated FROM series_episodes `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return fmt.Errorf("list series episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ref, tag string
			marker   sql.NullString
		)
		if err := rows.Scan(&ref, &tag, &marker); err != nil {
			return fmt.Errorf("scan series episode: %w", err)
		}
		sr, ok := bySeries[ref]
		if !ok {
			continue
		}
		sr.Tags = append(sr.Tags, tag)
		if t := parseTime(marker); !t.IsZero() {
			sr.Markers[tag] = t
		}
	}
	return rows.Err()
}

// Get returns the series registered under ref.
// Returns ErrUnknownSeries if it does not exist.
func (s *Store) Get(ctx context.Context, ref string) (*Series, error) {
	return getSeries(ctx, s.db, strings.TrimSpace(ref))
}

// List returns every registered series ordered by display name.
func (s *Store) List(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ctx, selectSeries+` ORDER BY series_name, ref`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	var result []*Series
	bySeries := make(map[string]*Series)
	for rows.Next() {
		sr, err := scanSeries(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan series: %w", err)
		}
		result = append(result, sr)
		bySeries[sr.Ref] = sr
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	_ = rows.Close()

	if err := loadEpisodes(ctx, s.db, bySeries, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// Remove unregisters a series and forgets its acquired tags. Torrents in
// the backend are left alone.
func (s *Store) Remove(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	unlock := s.locks.Lock(ref)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM series_episodes WHERE series_ref = ?`, ref); err != nil {
			return fmt.Errorf("delete series episodes %s: %w", ref, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM series WHERE ref = ?`, ref)
		if err != nil {
			return fmt.Errorf("delete series %s: %w", ref, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete series %s: %w", ref, err)
		}
		if n == 0 {
			return fmt.Errorf("delete series %s: %w", ref, ErrUnknownSeries)
		}
		return nil
	})
}

// Update changes the settings of a series and returns the updated record.
func (s *Store) Update(ctx context.Context, ref string, settings Settings) (*Series, error) {
	ref = strings.TrimSpace(ref)
	unlock := s.locks.Lock(ref)
	defer unlock()

	var updated *Series
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sr, err := getSeries(ctx, tx, ref)
		if err != nil {
			return err
		}
		settings.apply(sr)
		if err := sr.validate(); err != nil {
			return err
		}
		sr.UpdatedAt = s.now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE series SET save_path = ?, series_name = ?, season = ?, quality = ?, rename_enabled = ?, updated_at = ?
			WHERE ref = ?`,
			sr.SavePath, sr.DisplayName, sr.Season, sr.Quality, sr.RenameEnabled, formatTime(sr.UpdatedAt), ref,
		)
		if err != nil {
			return fmt.Errorf("update series %s: %w", ref, mapSQLiteError(err))
		}
		updated = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordEpisode adds tag to the series' acquired set and stores its
// freshness marker. A zero marker keeps whatever marker was stored before.
// The series' LastUpdated only moves forward.
func (s *Store) RecordEpisode(ctx context.Context, ref, tag string, marker time.Time) error {
	ref = strings.TrimSpace(ref)
	unlock := s.locks.Lock(ref)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT last_updated FROM series WHERE ref = ?`, ref).Scan(&last)
		if err != nil {
			return fmt.Errorf("record episode %s: %w", ref, mapSQLiteError(err))
		}

		now := s.now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO series_episodes (series_ref, tag, last_updated, added_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (series_ref, tag) DO UPDATE
			SET last_updated = COALESCE(excluded.last_updated, series_episodes.last_updated)`,
			ref, tag, formatTime(marker), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("record episode %s/%s: %w", ref, tag, err)
		}

		newest := parseTime(last)
		if marker.After(newest) {
			newest = marker
		}
		_, err = tx.ExecContext(ctx, `UPDATE series SET last_updated = ?, updated_at = ? WHERE ref = ?`,
			formatTime(newest), formatTime(now), ref)
		if err != nil {
			return fmt.Errorf("update series %s: %w", ref, err)
		}
		return nil
	})
}

// LastScan returns when the last full scan finished, zero if never.
func (s *Store) LastScan(ctx context.Context) (time.Time, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lastScanKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last scan: %w", err)
	}
	return parseTime(value), nil
}

// SetLastScan records when the last full scan finished.
func (s *Store) SetLastScan(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		lastScanKey, formatTime(t),
	)
	if err != nil {
		return fmt.Errorf("set last scan: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
