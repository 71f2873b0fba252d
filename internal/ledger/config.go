package ledger

import "fmt"

// Config holds configuration for the fleet ledger module.
type Config struct {
	Enabled          bool    `mapstructure:"enabled"`
	SiteLatitude     float64 `mapstructure:"site_latitude"`
	SiteLongitude    float64 `mapstructure:"site_longitude"`
	GeofenceRadiusKm float64 `mapstructure:"geofence_radius_km"`
	LowFuelThreshold float64 `mapstructure:"low_fuel_threshold"` // Percent
	ServiceDueHours  float64 `mapstructure:"service_due_hours"`

	// EmissionFactors maps equipment type to estimated kg CO2 per engine
	// hour. Machines of a type not listed here use DefaultEmissionFactor.
	EmissionFactors       map[string]float64 `mapstructure:"emission_factors"`
	DefaultEmissionFactor float64            `mapstructure:"default_emission_factor"`
}

// DefaultConfig returns sensible defaults for the ledger module.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		SiteLatitude:     40.7128,
		SiteLongitude:    -74.0060,
		GeofenceRadiusKm: 50,
		LowFuelThreshold: 15,
		ServiceDueHours:  500,
		EmissionFactors: map[string]float64{
			"excavator":    26.5,
			"wheel_loader": 18.2,
			"dozer":        30.4,
			"crane":        22.0,
			"dump_truck":   28.7,
		},
		DefaultEmissionFactor: 20.0,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.SiteLatitude < -90 || c.SiteLatitude > 90 {
		return fmt.Errorf("site_latitude out of range: %v", c.SiteLatitude)
	}
	if c.SiteLongitude < -180 || c.SiteLongitude > 180 {
		return fmt.Errorf("site_longitude out of range: %v", c.SiteLongitude)
	}
	if c.GeofenceRadiusKm <= 0 {
		return fmt.Errorf("geofence_radius_km must be positive, got %v", c.GeofenceRadiusKm)
	}
	if c.LowFuelThreshold < 0 || c.LowFuelThreshold > 100 {
		return fmt.Errorf("low_fuel_threshold must be a percentage, got %v", c.LowFuelThreshold)
	}
	if c.ServiceDueHours <= 0 {
		return fmt.Errorf("service_due_hours must be positive, got %v", c.ServiceDueHours)
	}
	if c.DefaultEmissionFactor <= 0 {
		return fmt.Errorf("default_emission_factor must be positive, got %v", c.DefaultEmissionFactor)
	}
	for typ, f := range c.EmissionFactors {
		if f <= 0 {
			return fmt.Errorf("emission factor for %q must be positive, got %v", typ, f)
		}
	}
	return nil
}
