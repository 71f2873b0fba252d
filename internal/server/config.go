package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/fleetsight.db")

	// Module defaults
	v.SetDefault("modules.ingest.enabled", true)
	v.SetDefault("modules.ingest.data_dir", "./data")
	v.SetDefault("modules.ingest.demand_file", "demand.csv")
	v.SetDefault("modules.ingest.telemetry_file", "telemetry.csv")
	v.SetDefault("modules.ingest.rentals_file", "rentals.csv")
	v.SetDefault("modules.ledger.enabled", true)
	v.SetDefault("modules.ledger.site_latitude", 40.7128)
	v.SetDefault("modules.ledger.site_longitude", -74.0060)
	v.SetDefault("modules.ledger.geofence_radius_km", 50.0)
	v.SetDefault("modules.ledger.low_fuel_threshold", 15.0)
	v.SetDefault("modules.ledger.service_due_hours", 500.0)
	v.SetDefault("modules.ledger.emission_factors", map[string]float64{
		"excavator":    26.5,
		"wheel_loader": 18.2,
		"dozer":        30.4,
		"crane":        22.0,
		"dump_truck":   28.7,
	})
	v.SetDefault("modules.ledger.default_emission_factor", 20.0)
	v.SetDefault("modules.demand.enabled", true)
	v.SetDefault("modules.demand.changepoint_prior_scale", 0.05)
	v.SetDefault("modules.demand.seasonality_prior_scale", 10.0)
	v.SetDefault("modules.demand.residual_steps", 60)
	v.SetDefault("modules.demand.hidden_size", 50)
	v.SetDefault("modules.demand.epochs", 30)
	v.SetDefault("modules.demand.learning_rate", 0.01)
	v.SetDefault("modules.demand.seed", 42)
	v.SetDefault("modules.demand.max_horizon", 365)
	v.SetDefault("modules.behavior.enabled", true)
	v.SetDefault("modules.behavior.sequence_length", 30)
	v.SetDefault("modules.behavior.latent_size", 128)
	v.SetDefault("modules.behavior.epochs", 30)
	v.SetDefault("modules.behavior.learning_rate", 0.005)
	v.SetDefault("modules.behavior.validation_split", 0.1)
	v.SetDefault("modules.behavior.threshold_multiplier", 2.5)
	v.SetDefault("modules.behavior.reference_equipment", "EX-01")
	v.SetDefault("modules.behavior.seed", 42)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fleetsight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetsight")
	}

	// Environment variable support: FS_SERVER_PORT=9090
	v.SetEnvPrefix("FS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
