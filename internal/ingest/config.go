package ingest

import "fmt"

// Config holds configuration for the ingest module.
type Config struct {
	Enabled       bool   `mapstructure:"enabled"`
	DataDir       string `mapstructure:"data_dir"`
	DemandFile    string `mapstructure:"demand_file"`
	TelemetryFile string `mapstructure:"telemetry_file"`
	RentalsFile   string `mapstructure:"rentals_file"`
}

// DefaultConfig returns sensible defaults for the ingest module.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		DataDir:       "./data",
		DemandFile:    "demand.csv",
		TelemetryFile: "telemetry.csv",
		RentalsFile:   "rentals.csv",
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	return nil
}
