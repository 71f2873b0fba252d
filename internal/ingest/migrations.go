package ingest

import (
	"database/sql"

	"github.com/fleetsight/fleetsight/pkg/module"
)

// migrations returns the ingest module's database migrations.
func migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "create raw data tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS demand_observations (
						date  DATETIME PRIMARY KEY,
						count REAL NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS telemetry_samples (
						timestamp    DATETIME NOT NULL,
						equipment_id TEXT NOT NULL,
						engine_load  REAL NOT NULL,
						PRIMARY KEY (equipment_id, timestamp)
					)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
