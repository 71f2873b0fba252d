package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// Store persists raw ingested data for inspection and replay.
type Store struct {
	db *sql.DB
}

// NewStore creates an ingest Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceDemand swaps the stored demand history for the loaded one.
// Startup loads replace wholesale; there is no incremental path.
func (s *Store) ReplaceDemand(ctx context.Context, obs []fleet.DemandObservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM demand_observations`); err != nil {
		return fmt.Errorf("clear demand: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO demand_observations (date, count) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare demand insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.Date, o.Count); err != nil {
			return fmt.Errorf("insert demand row: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceTelemetry swaps the stored telemetry history for the loaded one.
func (s *Store) ReplaceTelemetry(ctx context.Context, samples []fleet.TelemetrySample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM telemetry_samples`); err != nil {
		return fmt.Errorf("clear telemetry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry_samples (timestamp, equipment_id, engine_load) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare telemetry insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.Timestamp, s.EquipmentID, s.EngineLoad); err != nil {
			return fmt.Errorf("insert telemetry row: %w", err)
		}
	}
	return tx.Commit()
}

// Counts returns how many rows each raw table currently holds.
func (s *Store) Counts(ctx context.Context) (demand, telemetry int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM demand_observations`).Scan(&demand); err != nil {
		return 0, 0, fmt.Errorf("count demand: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry_samples`).Scan(&telemetry); err != nil {
		return 0, 0, fmt.Errorf("count telemetry: %w", err)
	}
	return demand, telemetry, nil
}
