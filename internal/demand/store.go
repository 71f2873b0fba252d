package demand

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// ForecastRun summarizes one persisted forecast generation.
type ForecastRun struct {
	ID          string    `json:"id"`
	Periods     int       `json:"periods"`
	HistoryRows int       `json:"history_rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store provides database access for the demand module.
type Store struct {
	db *sql.DB
}

// NewStore creates a demand Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertRun persists a forecast run and its rows in one transaction.
func (s *Store) InsertRun(ctx context.Context, run ForecastRun, rows []fleet.ForecastRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO demand_forecast_runs (id, periods, history_rows, generated_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Periods, run.HistoryRows, run.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demand_forecast_rows (run_id, date, actual, estimate, lower, upper)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var actual any
		if r.Actual != nil {
			actual = *r.Actual
		}
		if _, err := stmt.ExecContext(ctx, run.ID, r.Date, actual, r.Estimate, r.Lower, r.Upper); err != nil {
			return fmt.Errorf("insert forecast row: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent forecast runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ForecastRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, periods, history_rows, generated_at
		FROM demand_forecast_runs ORDER BY generated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list forecast runs: %w", err)
	}
	defer rows.Close()

	var runs []ForecastRun
	for rows.Next() {
		var r ForecastRun
		if err := rows.Scan(&r.ID, &r.Periods, &r.HistoryRows, &r.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunRows returns the stored rows of one run in date order.
func (s *Store) RunRows(ctx context.Context, runID string) ([]fleet.ForecastRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, actual, estimate, lower, upper
		FROM demand_forecast_rows WHERE run_id = ? ORDER BY date`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query forecast rows: %w", err)
	}
	defer rows.Close()

	var out []fleet.ForecastRow
	for rows.Next() {
		var r fleet.ForecastRow
		var actual sql.NullFloat64
		if err := rows.Scan(&r.Date, &actual, &r.Estimate, &r.Lower, &r.Upper); err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		if actual.Valid {
			v := actual.Float64
			r.Actual = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
