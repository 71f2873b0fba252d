// Package ledger tracks the rental fleet: per-machine state, return
// processing, rule-based alerts, and the sustainability report.
package ledger

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

// Module implements the rental ledger module.
type Module struct {
	logger *zap.Logger
	cfg    Config
	store  *Store
	bus    module.EventBus

	mu       sync.RWMutex
	loadedAt time.Time
	count    int
}

// New creates a ledger module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() module.Info {
	return module.Info{
		Name:         "ledger",
		Version:      "0.1.0",
		Description:  "Rental fleet state, alerts and emissions reporting",
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
			return fmt.Errorf("unmarshal ledger config: %w", err)
		}
	}

	if deps.Store == nil {
		return fmt.Errorf("ledger requires the shared store")
	}
	if err := deps.Store.Migrate(context.Background(), "ledger", migrations()); err != nil {
		return fmt.Errorf("ledger migrations: %w", err)
	}
	m.store = NewStore(deps.Store.DB())

	m.bus = deps.Bus

	m.logger.Info("ledger module initialized",
		zap.Float64("geofence_radius_km", m.cfg.GeofenceRadiusKm),
		zap.Float64("low_fuel_threshold", m.cfg.LowFuelThreshold),
		zap.Float64("service_due_hours", m.cfg.ServiceDueHours),
	)
	return nil
}

// ValidateConfig implements module.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// Subscriptions implements module.EventSubscriber. The loaded ledger is
// written straight through to SQLite; this module is the single writer.
func (m *Module) Subscriptions() []module.Subscription {
	return []module.Subscription{
		{Topic: TopicRentalsLoaded, Handler: m.handleRentalsLoaded},
	}
}

func (m *Module) handleRentalsLoaded(ctx context.Context, event module.Event) {
	records, ok := event.Payload.([]fleet.EquipmentRecord)
	if !ok {
		m.logger.Warn("unexpected payload on rentals topic",
			zap.String("topic", event.Topic),
			zap.String("source", event.Source))
		return
	}

	if err := m.store.ReplaceAll(ctx, records); err != nil {
		m.logger.Error("persist rental ledger", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.loadedAt = time.Now()
	m.count = len(records)
	m.mu.Unlock()

	m.logger.Info("rental ledger replaced", zap.Int("equipment", len(records)))
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("ledger module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("ledger module stopped")
	return nil
}

// Health implements module.HealthChecker.
func (m *Module) Health(_ context.Context) module.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.count == 0 {
		return module.HealthStatus{
			Status:  "degraded",
			Message: "ledger is empty",
		}
	}
	return module.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"equipment": fmt.Sprintf("%d", m.count),
			"loaded_at": m.loadedAt.Format(time.RFC3339),
		},
	}
}
