package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
	"github.com/i474232898/iot-weather-simulator/internal/simulator"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS series (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    start TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS readings (
    series_id TEXT NOT NULL REFERENCES series(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    ts TEXT NOT NULL,
    ts_unix_nano INTEGER NOT NULL,
    temperature REAL NOT NULL,
    humidity REAL NOT NULL,
    pressure REAL NOT NULL,
    dew_point REAL NOT NULL,
    PRIMARY KEY (series_id, idx)
);`

// SQLiteStore persists series using the pure Go driver modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Warn().Err(err).Msg("could not set WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Save replaces any series with the same id.
func (s *SQLiteStore) Save(series simulator.Series) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM readings WHERE series_id = ?`, series.ID); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO series(id, source, start, duration_minutes, seed, created_at) VALUES(?,?,?,?,?,?)`,
		series.ID, string(series.Source), series.Config.Start.Format(time.RFC3339Nano),
		series.Config.DurationMinutes, series.Config.Seed, series.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO readings(series_id, idx, ts, ts_unix_nano, temperature, humidity, pressure, dew_point) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range series.Readings {
		if _, err = stmt.Exec(series.ID, i, r.Timestamp.Format(time.RFC3339Nano), r.Timestamp.UnixNano(),
			r.Temperature, r.Humidity, r.Pressure, r.DewPoint); err != nil {
			return fmt.Errorf("insert reading %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Get loads a series and all of its readings.
func (s *SQLiteStore) Get(id string) (simulator.Series, error) {
	info, err := s.info(id)
	if err != nil {
		return simulator.Series{}, err
	}

	readings, err := s.queryReadings(`WHERE series_id = ?`, id)
	if err != nil {
		return simulator.Series{}, err
	}
	info.Length = len(readings)
	return simulator.Series{SeriesInfo: info, Readings: readings}, nil
}

// List returns metadata for every stored series, newest first.
func (s *SQLiteStore) List() ([]simulator.SeriesInfo, error) {
	rows, err := s.db.Query(`SELECT s.id, s.source, s.start, s.duration_minutes, s.seed, s.created_at,
        (SELECT COUNT(*) FROM readings r WHERE r.series_id = s.id)
        FROM series s ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]simulator.SeriesInfo, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Range returns the readings of a series between from and to (inclusive).
func (s *SQLiteStore) Range(id string, from, to time.Time) ([]sensor.SensorReading, error) {
	readings, err := s.queryReadings(`WHERE series_id = ? AND ts_unix_nano BETWEEN ? AND ?`,
		id, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return readings, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) info(id string) (simulator.SeriesInfo, error) {
	row := s.db.QueryRow(`SELECT id, source, start, duration_minutes, seed, created_at, 0 FROM series WHERE id = ?`, id)
	info, err := scanInfo(row)
	if err == sql.ErrNoRows {
		return simulator.SeriesInfo{}, ErrNotFound
	}
	return info, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(sc scanner) (simulator.SeriesInfo, error) {
	var (
		info             simulator.SeriesInfo
		source           string
		start, createdAt string
	)
	if err := sc.Scan(&info.ID, &source, &start, &info.Config.DurationMinutes, &info.Config.Seed, &createdAt, &info.Length); err != nil {
		return simulator.SeriesInfo{}, err
	}
	info.Source = simulator.Source(source)

	var err error
	if info.Config.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return simulator.SeriesInfo{}, fmt.Errorf("series %s: bad start %q: %w", info.ID, start, err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return simulator.SeriesInfo{}, fmt.Errorf("series %s: bad created_at %q: %w", info.ID, createdAt, err)
	}
	return info, nil
}

func (s *SQLiteStore) queryReadings(where string, args ...any) ([]sensor.SensorReading, error) {
	rows, err := s.db.Query(`SELECT ts, temperature, humidity, pressure, dew_point FROM readings `+where+` ORDER BY idx`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sensor.SensorReading
	for rows.Next() {
		var (
			r  sensor.SensorReading
			ts string
		)
		if err := rows.Scan(&ts, &r.Temperature, &r.Humidity, &r.Pressure, &r.DewPoint); err != nil {
			return nil, err
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("bad reading timestamp %q: %w", ts, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
