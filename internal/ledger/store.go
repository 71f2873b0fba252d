package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// ErrUnknownEquipment is returned when a machine id has no ledger row.
var ErrUnknownEquipment = errors.New("ledger: unknown equipment")

// ErrNotRented is returned when a return is requested for a machine that is
// not currently rented out.
var ErrNotRented = errors.New("ledger: equipment is not rented")

// Store is the single writer for the fleet ledger. Readers receive value
// copies; nothing hands out references into shared state.
type Store struct {
	db *sql.DB
}

// NewStore creates a ledger Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceAll swaps the ledger for the loaded snapshot in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, records []fleet.EquipmentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_equipment`); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_equipment
			(equipment_id, type, status, check_in_date, latitude, longitude,
			 fuel_level, engine_hours, hours_since_service, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.EquipmentID, r.Type, r.Status,
			optTime(r.CheckInDate), optFloat(r.Latitude), optFloat(r.Longitude),
			optFloat(r.FuelLevel), optFloat(r.EngineHours), optFloat(r.HoursSinceService),
			now,
		)
		if err != nil {
			return fmt.Errorf("insert ledger row %s: %w", r.EquipmentID, err)
		}
	}
	return tx.Commit()
}

// List returns the full ledger ordered by equipment id.
func (s *Store) List(ctx context.Context) ([]fleet.EquipmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectCols+` FROM ledger_equipment ORDER BY equipment_id`)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []fleet.EquipmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one machine's ledger row.
func (s *Store) Get(ctx context.Context, equipmentID string) (fleet.EquipmentRecord, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` FROM ledger_equipment WHERE equipment_id = ?`, equipmentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.EquipmentRecord{}, fmt.Errorf("%w: %s", ErrUnknownEquipment, equipmentID)
	}
	return rec, err
}

// Return marks a rented machine as available and stamps the check-in date.
// Returning a machine that is not rented is a conflict, not an upsert.
func (s *Store) Return(ctx context.Context, equipmentID string, at time.Time) (fleet.EquipmentRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fleet.EquipmentRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM ledger_equipment WHERE equipment_id = ?`, equipmentID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.EquipmentRecord{}, fmt.Errorf("%w: %s", ErrUnknownEquipment, equipmentID)
	}
	if err != nil {
		return fleet.EquipmentRecord{}, fmt.Errorf("lookup status: %w", err)
	}
	if status != fleet.StatusRented {
		return fleet.EquipmentRecord{}, fmt.Errorf("%w: %s is %s", ErrNotRented, equipmentID, status)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ledger_equipment
		SET status = ?, check_in_date = ?, updated_at = ?
		WHERE equipment_id = ?`,
		fleet.StatusAvailable, at, time.Now().UTC(), equipmentID)
	if err != nil {
		return fleet.EquipmentRecord{}, fmt.Errorf("update status: %w", err)
	}

	row := tx.QueryRowContext(ctx, selectCols+` FROM ledger_equipment WHERE equipment_id = ?`, equipmentID)
	rec, err := scanRecord(row)
	if err != nil {
		return fleet.EquipmentRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return fleet.EquipmentRecord{}, err
	}
	return rec, nil
}

const selectCols = `SELECT equipment_id, type, status, check_in_date, latitude, longitude,
	fuel_level, engine_hours, hours_since_service`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (fleet.EquipmentRecord, error) {
	var rec fleet.EquipmentRecord
	var checkIn sql.NullTime
	var lat, lon, fuel, hours, sinceService sql.NullFloat64

	err := sc.Scan(&rec.EquipmentID, &rec.Type, &rec.Status,
		&checkIn, &lat, &lon, &fuel, &hours, &sinceService)
	if err != nil {
		return fleet.EquipmentRecord{}, err
	}

	if checkIn.Valid {
		t := checkIn.Time
		rec.CheckInDate = &t
	}
	rec.Latitude = nullFloat(lat)
	rec.Longitude = nullFloat(lon)
	rec.FuelLevel = nullFloat(fuel)
	rec.EngineHours = nullFloat(hours)
	rec.HoursSinceService = nullFloat(sinceService)
	return rec, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
