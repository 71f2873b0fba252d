package behavior

import (
	"context"
	"testing"

	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"sequence length one", func(c *Config) { c.SequenceLength = 1 }, true},
		{"zero latent size", func(c *Config) { c.LatentSize = 0 }, true},
		{"negative learning rate", func(c *Config) { c.LearningRate = -0.1 }, true},
		{"validation split of one", func(c *Config) { c.ValidationSplit = 1.0 }, true},
		{"zero multiplier", func(c *Config) { c.ThresholdMultiplier = 0 }, true},
		{"empty reference equipment", func(c *Config) { c.ReferenceEquipment = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModule_Info(t *testing.T) {
	info := New().Info()
	if info.Name != "behavior" {
		t.Errorf("Name = %q, want behavior", info.Name)
	}
	if info.Required {
		t.Error("behavior must be optional")
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0] != "ingest" {
		t.Errorf("Dependencies = %v, want [ingest]", info.Dependencies)
	}
}

func TestModule_SubscriptionGroupsByEquipment(t *testing.T) {
	m := New()
	m.logger = zap.NewNop()

	samples := append(
		telemetry("EX-01", 40, 42, 44),
		telemetry("WL-07", 60, 61)...,
	)
	m.Subscriptions()[0].Handler(context.Background(), module.Event{
		Topic:   TopicTelemetryLoaded,
		Payload: samples,
	})

	got, ok := m.samplesFor("EX-01")
	if !ok || len(got) != 3 {
		t.Fatalf("EX-01 samples = %d (known=%v), want 3", len(got), ok)
	}
	got, ok = m.samplesFor("WL-07")
	if !ok || len(got) != 2 {
		t.Fatalf("WL-07 samples = %d (known=%v), want 2", len(got), ok)
	}
	if _, ok := m.samplesFor("ZZ-99"); ok {
		t.Error("unknown equipment reported as known")
	}
}

func TestModule_SubscriptionIgnoresWrongPayload(t *testing.T) {
	m := New()
	m.logger = zap.NewNop()

	m.Subscriptions()[0].Handler(context.Background(), module.Event{
		Topic:   TopicTelemetryLoaded,
		Payload: 42,
	})

	if len(m.telemetry) != 0 {
		t.Errorf("telemetry = %v, want empty after bad payload", m.telemetry)
	}
}

func TestModule_StartWithoutReferenceStaysUntrained(t *testing.T) {
	m := New()
	m.logger = zap.NewNop()
	m.cfg = DefaultConfig()

	// Telemetry exists, but not for the reference machine.
	m.Subscriptions()[0].Handler(context.Background(), module.Event{
		Payload: telemetry("WL-07", constant(100, 50)...),
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if health := m.Health(context.Background()); health.Status != "unhealthy" {
		t.Errorf("Health.Status = %q, want unhealthy while untrained", health.Status)
	}
}

func TestModule_StartTrainsOnReferenceEquipment(t *testing.T) {
	m := New()
	m.logger = zap.NewNop()
	m.cfg = testAEConfig()

	samples := append(
		telemetry(m.cfg.ReferenceEquipment, constant(120, 50)...),
		telemetry("WL-07", constant(120, 80)...)...,
	)
	m.Subscriptions()[0].Handler(context.Background(), module.Event{Payload: samples})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	health := m.Health(context.Background())
	if health.Status != "healthy" {
		t.Fatalf("Health.Status = %q, want healthy; message: %s", health.Status, health.Message)
	}
	if m.currentDetector() == nil {
		t.Fatal("detector not set after Start")
	}

	// The trained model belongs to the reference machine; other machines
	// are scored against it, not given models of their own.
	verdict, err := m.currentDetector().Analyze("WL-07", samples[120:])
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !verdict.IsAnomaly {
		t.Error("machine running 30 points above the reference not flagged")
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
