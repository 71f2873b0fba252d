package demand

import (
	"database/sql"

	"github.com/fleetsight/fleetsight/pkg/module"
)

// migrations returns the demand module's database migrations.
func migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "create forecast tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS demand_forecast_runs (
						id           TEXT PRIMARY KEY,
						periods      INTEGER NOT NULL,
						history_rows INTEGER NOT NULL,
						generated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE IF NOT EXISTS demand_forecast_rows (
						run_id   TEXT NOT NULL REFERENCES demand_forecast_runs(id) ON DELETE CASCADE,
						date     DATETIME NOT NULL,
						actual   REAL,
						estimate REAL NOT NULL,
						lower    REAL NOT NULL,
						upper    REAL NOT NULL,
						PRIMARY KEY (run_id, date)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_demand_forecast_rows_date ON demand_forecast_rows(date)`,
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
