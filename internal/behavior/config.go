package behavior

import "fmt"

// Config holds configuration for the behavioral anomaly module.
type Config struct {
	Enabled             bool    `mapstructure:"enabled"`
	SequenceLength      int     `mapstructure:"sequence_length"`
	LatentSize          int     `mapstructure:"latent_size"`
	Epochs              int     `mapstructure:"epochs"`
	LearningRate        float64 `mapstructure:"learning_rate"`
	ValidationSplit     float64 `mapstructure:"validation_split"`
	ThresholdMultiplier float64 `mapstructure:"threshold_multiplier"`
	ReferenceEquipment  string  `mapstructure:"reference_equipment"` // Known-normal machine the model trains on
	Seed                int64   `mapstructure:"seed"`
}

// DefaultConfig returns sensible defaults for the behavior module.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		SequenceLength:      30,
		LatentSize:          128,
		Epochs:              30,
		LearningRate:        0.005,
		ValidationSplit:     0.1,
		ThresholdMultiplier: 2.5,
		ReferenceEquipment:  "EX-01",
		Seed:                42,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.SequenceLength < 2 {
		return fmt.Errorf("sequence_length must be at least 2, got %d", c.SequenceLength)
	}
	if c.LatentSize < 1 {
		return fmt.Errorf("latent_size must be positive, got %d", c.LatentSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		return fmt.Errorf("validation_split must be in [0, 1), got %v", c.ValidationSplit)
	}
	if c.ThresholdMultiplier <= 0 {
		return fmt.Errorf("threshold_multiplier must be positive, got %v", c.ThresholdMultiplier)
	}
	if c.ReferenceEquipment == "" {
		return fmt.Errorf("reference_equipment must be set")
	}
	return nil
}
