// Package store handles SQLite export of captures.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/scopeview/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrCaptureNotFound is returned when a capture ID is not in the database.
var ErrCaptureNotFound = errors.New("capture not found")

// Store wraps SQLite access for exported captures.
type Store struct {
	db *sql.DB
}

// Record is one capture as written to the database.
type Record struct {
	ID         string
	ExportedAt time.Time
	Dataset    *model.Dataset
	Statistics model.Statistics
	Settings   model.ScopeSettings
}

// Summary is a capture row without its samples.
type Summary struct {
	ID           string
	Source       string
	ExportedAt   time.Time
	TotalSamples int
	ChannelCount int
	Duration     float64
	SampleRate   float64
	TimePerDiv   float64
	XPosition    float64
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			exported_at TEXT NOT NULL,
			total_samples INTEGER NOT NULL,
			channel_count INTEGER NOT NULL,
			duration REAL NOT NULL,
			sample_rate REAL NOT NULL,
			time_per_div REAL NOT NULL,
			x_position REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			volts_per_div REAL NOT NULL,
			y_position REAL NOT NULL,
			enabled INTEGER NOT NULL,
			PRIMARY KEY (capture_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS samples (
			capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			time REAL NOT NULL,
			PRIMARY KEY (capture_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS sample_values (
			capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
			channel_idx INTEGER NOT NULL,
			sample_idx INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (capture_id, channel_idx, sample_idx)
		);`,
		`CREATE TABLE IF NOT EXISTS channel_stats (
			capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
			channel_idx INTEGER NOT NULL,
			mean REAL NOT NULL,
			rms REAL NOT NULL,
			peak_to_peak REAL NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			std_dev REAL NOT NULL,
			frequency REAL NOT NULL,
			PRIMARY KEY (capture_id, channel_idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_exported_at ON captures(exported_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCapture writes a capture with its channels, samples and statistics,
// replacing any earlier export with the same ID.
func (s *Store) SaveCapture(ctx context.Context, rec Record) (err error) {
	if rec.Dataset == nil {
		return fmt.Errorf("capture %s has no dataset", rec.ID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, table := range []string{"sample_values", "samples", "channel_stats", "channels", "captures"} {
		col := "capture_id"
		if table == "captures" {
			col = "id"
		}
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, col), rec.ID); err != nil {
			return err
		}
	}

	ds := rec.Dataset
	overall := rec.Statistics.Overall
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO captures (id, source, exported_at, total_samples, channel_count, duration, sample_rate, time_per_div, x_position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		ds.SourceName,
		rec.ExportedAt.UTC().Format(time.RFC3339Nano),
		overall.TotalSamples,
		overall.ChannelCount,
		overall.Duration,
		overall.SampleRate,
		rec.Settings.TimePerDiv,
		rec.Settings.XPosition,
	); err != nil {
		return err
	}

	for _, ch := range ds.Channels {
		cs, _ := rec.Settings.Channel(ch.Name)
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO channels (capture_id, idx, name, volts_per_div, y_position, enabled) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, ch.Index, ch.Name, cs.VoltsPerDiv, cs.YPosition, cs.Enabled,
		); err != nil {
			return err
		}
	}

	if err = insertEach(ctx, tx, `INSERT INTO samples (capture_id, idx, time) VALUES (?, ?, ?)`, len(ds.Time), func(i int) []any {
		return []any{rec.ID, i, ds.Time[i]}
	}); err != nil {
		return err
	}
	for _, ch := range ds.Channels {
		values := ch.Values
		idx := ch.Index
		if err = insertEach(ctx, tx, `INSERT INTO sample_values (capture_id, channel_idx, sample_idx, value) VALUES (?, ?, ?, ?)`, len(values), func(i int) []any {
			return []any{rec.ID, idx, i, values[i]}
		}); err != nil {
			return err
		}
	}

	if err = insertEach(ctx, tx,
		`INSERT INTO channel_stats (capture_id, channel_idx, mean, rms, peak_to_peak, min, max, std_dev, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rec.Statistics.Channels), func(i int) []any {
			cs := rec.Statistics.Channels[i]
			return []any{rec.ID, cs.Index, cs.Mean, cs.RMS, cs.PeakToPeak, cs.Min, cs.Max, cs.StdDev, cs.Frequency}
		}); err != nil {
		return err
	}

	return tx.Commit()
}

func insertEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

// ListCaptures returns exported captures, oldest first.
func (s *Store) ListCaptures(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, exported_at, total_samples, channel_count, duration, sample_rate, time_per_div, x_position
		 FROM captures
		 ORDER BY exported_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var sum Summary
		var exportedAt string
		if err := rows.Scan(&sum.ID, &sum.Source, &exportedAt, &sum.TotalSamples, &sum.ChannelCount,
			&sum.Duration, &sum.SampleRate, &sum.TimePerDiv, &sum.XPosition); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, exportedAt)
		if err != nil {
			return nil, err
		}
		sum.ExportedAt = parsed
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadDataset reads the samples of an exported capture back.
func (s *Store) LoadDataset(ctx context.Context, id string) (*model.Dataset, error) {
	ds := &model.Dataset{}
	if err := s.db.QueryRowContext(ctx, `SELECT source FROM captures WHERE id = ?`, id).Scan(&ds.SourceName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
		}
		return nil, err
	}

	if err := s.queryEach(ctx, `SELECT time FROM samples WHERE capture_id = ? ORDER BY idx`, []any{id}, func(rows *sql.Rows) error {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return err
		}
		ds.Time = append(ds.Time, t)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.queryEach(ctx, `SELECT idx, name FROM channels WHERE capture_id = ? ORDER BY idx`, []any{id}, func(rows *sql.Rows) error {
		var ch model.Channel
		if err := rows.Scan(&ch.Index, &ch.Name); err != nil {
			return err
		}
		ds.Channels = append(ds.Channels, ch)
		return nil
	}); err != nil {
		return nil, err
	}

	for i := range ds.Channels {
		ch := &ds.Channels[i]
		ch.Values = make([]float64, 0, len(ds.Time))
		if err := s.queryEach(ctx, `SELECT value FROM sample_values WHERE capture_id = ? AND channel_idx = ? ORDER BY sample_idx`, []any{id, ch.Index}, func(rows *sql.Rows) error {
			var v float64
			if err := rows.Scan(&v); err != nil {
				return err
			}
			ch.Values = append(ch.Values, v)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// ChannelStats returns the stored statistics of a capture in channel order.
func (s *Store) ChannelStats(ctx context.Context, id string) ([]model.ChannelStats, error) {
	var result []model.ChannelStats
	err := s.queryEach(ctx,
		`SELECT c.name, cs.channel_idx, cs.mean, cs.rms, cs.peak_to_peak, cs.min, cs.max, cs.std_dev, cs.frequency
		 FROM channel_stats cs
		 JOIN channels c ON c.capture_id = cs.capture_id AND c.idx = cs.channel_idx
		 WHERE cs.capture_id = ?
		 ORDER BY cs.channel_idx`, []any{id}, func(rows *sql.Rows) error {
			var st model.ChannelStats
			if err := rows.Scan(&st.Name, &st.Index, &st.Mean, &st.RMS, &st.PeakToPeak, &st.Min, &st.Max, &st.StdDev, &st.Frequency); err != nil {
				return err
			}
			result = append(result, st)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) queryEach(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
