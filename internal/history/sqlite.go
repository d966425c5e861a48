// Package history persists hourly forecast observations to sqlite and
// reads them back as the engine's last-resort fallback source.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

// ErrNoRows is returned when a location has no usable history. It is the
// forecast engine's no-data sentinel, so the engine can tell an empty
// table apart from a broken one.
var ErrNoRows = forecast.ErrNoHistory

// Store reads and writes the forecast_hours table. Uniqueness per
// (location_key, time) is enforced by the schema; re-saving the same hour
// is a no-op.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// One connection keeps writes serialized and makes :memory: safe.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS forecast_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_key TEXT NOT NULL,
			time TEXT NOT NULL,
			ok INTEGER NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0,
			rating TEXT NOT NULL,
			wave_height REAL,
			wind_speed REAL,
			sea_surface_temperature REAL,
			sea_level_height REAL,
			current_velocity REAL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_forecast_hours_location_time
			ON forecast_hours(location_key, time);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating forecast_hours table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists the hours for a location. Conflicting (location_key,
// time) rows are ignored, so repeated sweeps over the same horizon don't
// duplicate history.
func (s *Store) Save(ctx context.Context, locationKey string, hours []forecast.HourlyRecord) error {
	if locationKey == "" || len(hours) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO forecast_hours
			(location_key, time, ok, score, rating,
			 wave_height, wind_speed, sea_surface_temperature,
			 sea_level_height, current_velocity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hours {
		_, err := stmt.ExecContext(ctx,
			locationKey,
			h.Time.UTC().Format(time.RFC3339),
			h.OK,
			h.Score,
			string(h.Rating),
			nullable(h.WaveHeight),
			nullable(h.WindSpeed),
			nullable(h.SeaSurfaceTemp),
			nullable(h.SeaLevelHeight),
			nullable(h.CurrentVelocity),
		)
		if err != nil {
			return fmt.Errorf("inserting history row for %s: %w", locationKey, err)
		}
	}

	return tx.Commit()
}

// FutureHours returns the persisted rows for the location at or after
// now, ordered by time. Daylight cannot be reconstructed from storage, so
// rows report LightOK=true with nil sunrise/sunset; tide and slack flags
// are recomputed by the caller from the stored series.
func (s *Store) FutureHours(ctx context.Context, locationKey string, now time.Time) ([]forecast.HourlyRecord, error) {
	if locationKey == "" {
		return nil, ErrNoRows
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT time, ok, score, rating,
		       wave_height, wind_speed, sea_surface_temperature,
		       sea_level_height, current_velocity
		FROM forecast_hours
		WHERE location_key = ? AND time >= ?
		ORDER BY time ASC
	`, locationKey, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", locationKey, err)
	}
	defer rows.Close()

	var records []forecast.HourlyRecord
	for rows.Next() {
		var (
			ts                             string
			ok                             bool
			score                          float64
			rating                         string
			wave, wind, sst, level, curVel sql.NullFloat64
		)
		if err := rows.Scan(&ts, &ok, &score, &rating, &wave, &wind, &sst, &level, &curVel); err != nil {
			return nil, fmt.Errorf("scanning history row for %s: %w", locationKey, err)
		}

		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("bad stored time %q for %s: %w", ts, locationKey, err)
		}

		records = append(records, forecast.HourlyRecord{
			Time:            t,
			WaveHeight:      fromNull(wave),
			WindSpeed:       fromNull(wind),
			SeaSurfaceTemp:  fromNull(sst),
			SeaLevelHeight:  fromNull(level),
			CurrentVelocity: fromNull(curVel),
			LightOK:         true,
			Score:           score,
			Rating:          forecast.Rating(rating),
			OK:              ok,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", locationKey, err)
	}

	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
