package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists training runs and served forecasts to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP API read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS training_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			run_id          TEXT NOT NULL,
			kind            TEXT,
			train_size      INTEGER,
			validation_size INTEGER,
			mae             REAL,
			duration_ms     INTEGER,
			artifact_path   TEXT,
			from_cache      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_ts ON training_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_requests (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT NOT NULL,
			source      TEXT,
			start_date  TEXT,
			periods     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_ts ON forecast_requests(timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id  TEXT NOT NULL,
			date        TEXT,
			price       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_request ON forecast_points(request_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTraining(run *TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO training_runs
		(timestamp, run_id, kind, train_size, validation_size, mae, duration_ms, artifact_path, from_cache)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), run.RunID, run.Kind, run.TrainSize, run.ValidationSize,
		run.MAE, run.Duration.Milliseconds(), run.ArtifactPath, boolToInt(run.FromCache),
	)
	return err
}

func (r *SQLiteRecorder) RecordForecast(req *ForecastRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO forecast_requests
		(timestamp, request_id, source, start_date, periods)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), req.RequestID, req.Source, req.StartDate.Format(time.DateOnly), req.Periods,
	); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	for _, p := range req.Points {
		if _, err := tx.Exec(`INSERT INTO forecast_points (request_id, date, price) VALUES (?,?,?)`,
			req.RequestID, p.Date.Format(time.DateOnly), p.Price,
		); err != nil {
			return fmt.Errorf("insert point: %w", err)
		}
	}
	return tx.Commit()
}

// RecentTrainings returns the latest training runs, newest first.
func (r *SQLiteRecorder) RecentTrainings(limit int) ([]TrainingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, kind, train_size, validation_size, mae, duration_ms, artifact_path, from_cache
		FROM training_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainingRun
	for rows.Next() {
		var run TrainingRun
		var durationMS int64
		var fromCache int
		if err := rows.Scan(&run.RunID, &run.Kind, &run.TrainSize, &run.ValidationSize,
			&run.MAE, &durationMS, &run.ArtifactPath, &fromCache); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.FromCache = fromCache != 0
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
