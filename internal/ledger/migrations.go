package ledger

import (
	"database/sql"

	"github.com/fleetsight/fleetsight/pkg/module"
)

// migrations returns the ledger module's database migrations.
func migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "create equipment table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS ledger_equipment (
						equipment_id        TEXT PRIMARY KEY,
						type                TEXT NOT NULL,
						status              TEXT NOT NULL,
						check_in_date       DATETIME,
						latitude            REAL,
						longitude           REAL,
						fuel_level          REAL,
						engine_hours        REAL,
						hours_since_service REAL,
						updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`)
				return err
			},
		},
	}
}
