package demand

import "fmt"

// Config holds configuration for the demand forecasting module.
type Config struct {
	Enabled               bool    `mapstructure:"enabled"`
	ChangepointPriorScale float64 `mapstructure:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `mapstructure:"seasonality_prior_scale"`
	ResidualSteps         int     `mapstructure:"residual_steps"` // Input window for the residual learner
	HiddenSize            int     `mapstructure:"hidden_size"`
	Epochs                int     `mapstructure:"epochs"`
	LearningRate          float64 `mapstructure:"learning_rate"`
	Seed                  int64   `mapstructure:"seed"`
	MaxHorizon            int     `mapstructure:"max_horizon"` // Upper bound on requested forecast periods
}

// DefaultConfig returns sensible defaults for the demand module.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10.0,
		ResidualSteps:         60,
		HiddenSize:            50,
		Epochs:                30,
		LearningRate:          0.01,
		Seed:                  42,
		MaxHorizon:            365,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.ResidualSteps < 1 {
		return fmt.Errorf("residual_steps must be positive, got %d", c.ResidualSteps)
	}
	if c.HiddenSize < 1 {
		return fmt.Errorf("hidden_size must be positive, got %d", c.HiddenSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
	}
	if c.MaxHorizon < 1 {
		return fmt.Errorf("max_horizon must be positive, got %d", c.MaxHorizon)
	}
	return nil
}
