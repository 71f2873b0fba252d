package behavior

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// VerdictRecord is one persisted anomaly evaluation.
type VerdictRecord struct {
	ID                  string    `json:"id"`
	EquipmentID         string    `json:"equipment_id"`
	IsAnomaly           bool      `json:"is_anomaly"`
	ReconstructionError float64   `json:"reconstruction_error"`
	Threshold           float64   `json:"threshold"`
	EvaluatedAt         time.Time `json:"evaluated_at"`
}

// Store provides database access for the behavior module.
type Store struct {
	db *sql.DB
}

// NewStore creates a behavior Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertVerdict records one anomaly evaluation. The sequence itself is not
// stored; verdicts are derived values kept only for audit.
func (s *Store) InsertVerdict(ctx context.Context, id string, v fleet.AnomalyVerdict) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO behavior_verdicts
			(id, equipment_id, is_anomaly, reconstruction_error, threshold, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, v.EquipmentID, v.IsAnomaly, v.ReconstructionError, v.Threshold, v.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// ListVerdicts returns recent verdicts for one equipment, newest first.
// An empty equipmentID lists verdicts across the fleet.
func (s *Store) ListVerdicts(ctx context.Context, equipmentID string, limit int) ([]VerdictRecord, error) {
	query := `
		SELECT id, equipment_id, is_anomaly, reconstruction_error, threshold, evaluated_at
		FROM behavior_verdicts`
	args := []any{}
	if equipmentID != "" {
		query += ` WHERE equipment_id = ?`
		args = append(args, equipmentID)
	}
	query += ` ORDER BY evaluated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictRecord
	for rows.Next() {
		var v VerdictRecord
		if err := rows.Scan(&v.ID, &v.EquipmentID, &v.IsAnomaly, &v.ReconstructionError, &v.Threshold, &v.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
