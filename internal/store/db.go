package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-forecast-pipeline/internal/model"
)

var (
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotCompleted is returned when a failed or running run has no result.
	ErrRunNotCompleted = errors.New("run has no result")
)

const schema = `
CREATE TABLE IF NOT EXISTS forecast_runs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	label TEXT NOT NULL,
	request TEXT NOT NULL,
	status TEXT NOT NULL,
	frequency TEXT,
	confidence REAL,
	model TEXT,
	insights TEXT,
	error_kind TEXT,
	error_message TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_forecast_runs_session ON forecast_runs (session_id, created_at);
CREATE TABLE IF NOT EXISTS forecast_points (
	run_id TEXT NOT NULL REFERENCES forecast_runs (id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	seq INTEGER NOT NULL,
	ts DATETIME NOT NULL,
	value REAL NOT NULL,
	lower REAL,
	upper REAL,
	PRIMARY KEY (run_id, kind, seq)
);
`

// DB is the run history, backed by sqlite.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the sqlite database at dsn and creates the tables.
// Use ":memory:" for a throwaway store.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRun stores a new run.
func (s *DB) SaveRun(ctx context.Context, run *model.RunRecord) error {
	reqJSON, err := json.Marshal(run.Request)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO forecast_runs (id, session_id, mode, label, request, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, string(run.Mode), run.Label, string(reqJSON), run.Status,
		run.CreatedAt.UTC(), run.UpdatedAt.UTC())
	return err
}

// CompleteRun marks a run completed and stores its history and forecast points.
func (s *DB) CompleteRun(ctx context.Context, outcome *model.Outcome) error {
	modelJSON, err := json.Marshal(outcome.Model)
	if err != nil {
		return err
	}
	insightsJSON, err := json.Marshal(outcome.Insights)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE forecast_runs SET status = ?, frequency = ?, confidence = ?, model = ?, insights = ?, updated_at = ?
		 WHERE id = ?`,
		model.RunStatusCompleted, string(outcome.Forecast.Frequency), outcome.Forecast.Confidence,
		string(modelJSON), string(insightsJSON), s.now(), outcome.RunID)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO forecast_points (run_id, kind, seq, ts, value, lower, upper) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ts := range outcome.History.Timestamps {
		if _, err := stmt.ExecContext(ctx, outcome.RunID, model.PointHistory, i, ts.UTC(), outcome.History.Values[i], nil, nil); err != nil {
			return fmt.Errorf("failed to insert history point: %w", err)
		}
	}
	for i, p := range outcome.Forecast.Points {
		if _, err := stmt.ExecContext(ctx, outcome.RunID, model.PointForecast, i, p.Time.UTC(), p.Value, nullable(p.Lower), nullable(p.Upper)); err != nil {
			return fmt.Errorf("failed to insert forecast point: %w", err)
		}
	}
	return tx.Commit()
}

// FailRun marks a run failed with the error kind and message.
func (s *DB) FailRun(ctx context.Context, runID, kind, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE forecast_runs SET status = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		model.RunStatusFailed, kind, message, s.now(), runID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

const runColumns = `id, session_id, mode, label, request, status, error_kind, error_message, created_at, updated_at`

// ListRuns returns runs newest first. An empty sessionID lists every session.
func (s *DB) ListRuns(ctx context.Context, sessionID string, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM forecast_runs`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run.
func (s *DB) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM forecast_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// GetPoints returns the stored points of one kind in order.
func (s *DB) GetPoints(ctx context.Context, runID, kind string) ([]model.ForecastPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value, lower, upper FROM forecast_points WHERE run_id = ? AND kind = ? ORDER BY seq`,
		runID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []model.ForecastPoint
	for rows.Next() {
		var (
			p            model.ForecastPoint
			lower, upper sql.NullFloat64
		)
		if err := rows.Scan(&p.Time, &p.Value, &lower, &upper); err != nil {
			return nil, err
		}
		p.Time = p.Time.UTC()
		if lower.Valid && upper.Valid {
			p.Lower, p.Upper = &lower.Float64, &upper.Float64
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// LoadOutcome rebuilds the outcome of a completed run for export and charts.
func (s *DB) LoadOutcome(ctx context.Context, runID string) (*model.Outcome, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunStatusCompleted {
		return nil, fmt.Errorf("%w: run %s is %s", ErrRunNotCompleted, runID, run.Status)
	}

	var (
		frequency            string
		confidence           sql.NullFloat64
		modelJSON, insightsJ sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT frequency, confidence, model, insights FROM forecast_runs WHERE id = ?`, runID).
		Scan(&frequency, &confidence, &modelJSON, &insightsJ)
	if err != nil {
		return nil, err
	}

	outcome := &model.Outcome{
		RunID:    run.ID,
		Request:  run.Request,
		Forecast: &model.ForecastResult{Frequency: model.Frequency(frequency), Confidence: confidence.Float64},
		Insights: &model.SummaryInsights{},
		Duration: run.UpdatedAt.Sub(run.CreatedAt),
	}
	if err := json.Unmarshal([]byte(modelJSON.String), &outcome.Model); err != nil {
		return nil, fmt.Errorf("failed to decode model summary: %w", err)
	}
	if err := json.Unmarshal([]byte(insightsJ.String), outcome.Insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}

	history, err := s.GetPoints(ctx, runID, model.PointHistory)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(history))
	values := make([]float64, len(history))
	for i, p := range history {
		times[i], values[i] = p.Time, p.Value
	}
	outcome.History, err = model.NewTimeSeries(run.Label, outcome.Forecast.Frequency, times, values)
	if err != nil {
		return nil, err
	}

	outcome.Forecast.Points, err = s.GetPoints(ctx, runID, model.PointForecast)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.RunRecord, error) {
	var (
		run          model.RunRecord
		mode, reqStr string
		kind, msg    sql.NullString
	)
	if err := row.Scan(&run.ID, &run.SessionID, &mode, &run.Label, &reqStr, &run.Status,
		&kind, &msg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Mode = model.Mode(mode)
	run.ErrorKind, run.ErrorMessage = kind.String, msg.String
	if err := json.Unmarshal([]byte(reqStr), &run.Request); err != nil {
		return nil, fmt.Errorf("failed to decode request of run %s: %w", run.ID, err)
	}
	return &run, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
