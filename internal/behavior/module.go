package behavior

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ module.Module          = (*Module)(nil)
	_ module.HTTPProvider    = (*Module)(nil)
	_ module.HealthChecker   = (*Module)(nil)
	_ module.EventSubscriber = (*Module)(nil)
	_ module.Validator       = (*Module)(nil)
)

// Module implements the behavioral anomaly detection module.
type Module struct {
	logger *zap.Logger
	cfg    Config
	store  *Store
	bus    module.EventBus

	mu        sync.RWMutex
	telemetry map[string][]fleet.TelemetrySample
	detector  *Detector
	trainedAt time.Time
}

// New creates a behavior module instance.
func New() *Module {
	return &Module{
		telemetry: make(map[string][]fleet.TelemetrySample),
	}
}

func (m *Module) Info() module.Info {
	return module.Info{
		Name:         "behavior",
		Version:      "0.1.0",
		Description:  "Sequence-reconstruction anomaly detection on equipment telemetry",
		Dependencies: []string{"ingest"},
		Required:     false,
		APIVersion:   module.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps module.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal behavior config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "behavior", migrations()); err != nil {
			return fmt.Errorf("behavior migrations: %w", err)
		}
		m.store = NewStore(deps.Store.DB())
	}

	m.bus = deps.Bus

	m.logger.Info("behavior module initialized",
		zap.Int("sequence_length", m.cfg.SequenceLength),
		zap.Int("latent_size", m.cfg.LatentSize),
		zap.Float64("threshold_multiplier", m.cfg.ThresholdMultiplier),
		zap.String("reference_equipment", m.cfg.ReferenceEquipment),
	)
	return nil
}

// ValidateConfig implements module.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// Subscriptions implements module.EventSubscriber. The ingest module
// publishes the full telemetry history during its Start, which runs first.
func (m *Module) Subscriptions() []module.Subscription {
	return []module.Subscription{
		{Topic: TopicTelemetryLoaded, Handler: m.handleTelemetryLoaded},
	}
}

func (m *Module) handleTelemetryLoaded(_ context.Context, event module.Event) {
	samples, ok := event.Payload.([]fleet.TelemetrySample)
	if !ok {
		m.logger.Warn("unexpected payload on telemetry topic",
			zap.String("topic", event.Topic),
			zap.String("source", event.Source))
		return
	}

	grouped := make(map[string][]fleet.TelemetrySample)
	for _, s := range samples {
		grouped[s.EquipmentID] = append(grouped[s.EquipmentID], s)
	}

	m.mu.Lock()
	m.telemetry = grouped
	m.mu.Unlock()

	m.logger.Debug("telemetry history received",
		zap.Int("samples", len(samples)),
		zap.Int("equipment", len(grouped)))
}

// Start trains the autoencoder on the reference equipment's engine-load
// history. Training is synchronous; known-normal data comes from one machine
// so the model specializes in reconstructing normal operation. With no data
// the module stays up but reports untrained.
func (m *Module) Start(ctx context.Context) error {
	m.mu.RLock()
	reference := m.telemetry[m.cfg.ReferenceEquipment]
	m.mu.RUnlock()

	if len(reference) == 0 {
		m.logger.Warn("no telemetry for reference equipment, detector not trained",
			zap.String("reference_equipment", m.cfg.ReferenceEquipment))
		return nil
	}

	values := make([]float64, len(reference))
	for i, s := range reference {
		values[i] = s.EngineLoad
	}

	started := time.Now()
	ae := NewAutoencoder(m.cfg)
	if err := ae.Train(values); err != nil {
		return fmt.Errorf("train behavior autoencoder: %w", err)
	}

	m.mu.Lock()
	m.detector = NewDetector(ae, m.cfg.ThresholdMultiplier)
	m.trainedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info("behavior autoencoder trained",
		zap.String("reference_equipment", m.cfg.ReferenceEquipment),
		zap.Int("samples", len(values)),
		zap.Float64("training_loss", ae.TrainingLoss()),
		zap.Float64("validation_loss", ae.ValidationLoss()),
		zap.Float64("threshold", ae.TrainingLoss()*m.cfg.ThresholdMultiplier),
		zap.Duration("elapsed", time.Since(started)))

	if m.bus != nil {
		m.bus.PublishAsync(ctx, module.Event{
			Topic:     TopicModelTrained,
			Source:    "behavior",
			Timestamp: time.Now(),
			Payload: map[string]any{
				"samples":       len(values),
				"training_loss": ae.TrainingLoss(),
			},
		})
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("behavior module stopped")
	return nil
}

// Health implements module.HealthChecker.
func (m *Module) Health(_ context.Context) module.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.detector == nil {
		return module.HealthStatus{
			Status:  "unhealthy",
			Message: "autoencoder not trained",
			Details: map[string]string{"equipment_tracked": fmt.Sprintf("%d", len(m.telemetry))},
		}
	}

	return module.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"equipment_tracked": fmt.Sprintf("%d", len(m.telemetry)),
			"threshold":         fmt.Sprintf("%.6f", m.detector.Threshold()),
			"trained_at":        m.trainedAt.Format(time.RFC3339),
		},
	}
}

func (m *Module) currentDetector() *Detector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detector
}

// samplesFor returns the stored telemetry for one machine and whether the
// machine is known at all.
func (m *Module) samplesFor(equipmentID string) ([]fleet.TelemetrySample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	samples, ok := m.telemetry[equipmentID]
	return samples, ok
}
