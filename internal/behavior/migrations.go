package behavior

import (
	"database/sql"

	"github.com/fleetsight/fleetsight/pkg/module"
)

// migrations returns the behavior module's database migrations.
func migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "create anomaly verdict table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS behavior_verdicts (
						id                   TEXT PRIMARY KEY,
						equipment_id         TEXT NOT NULL,
						is_anomaly           INTEGER NOT NULL,
						reconstruction_error REAL NOT NULL,
						threshold            REAL NOT NULL,
						evaluated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_behavior_verdicts_equipment
						ON behavior_verdicts(equipment_id, evaluated_at)`,
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
