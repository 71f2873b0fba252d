// Package ingest loads the CSV exports (demand history, operational
// telemetry, rental ledger) at startup, persists the raw rows, and publishes
// each dataset on the event bus for the model-owning modules to consume.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ module.Module        = (*Module)(nil)
	_ module.HTTPProvider  = (*Module)(nil)
	_ module.HealthChecker = (*Module)(nil)
	_ module.Validator     = (*Module)(nil)
)

// Module implements the data ingest module.
type Module struct {
	logger *zap.Logger
	cfg    Config
	store  *Store
	bus    module.EventBus

	mu       sync.RWMutex
	loaded   map[string]int // dataset name -> rows loaded
	loadedAt time.Time
}

// New creates an ingest module instance.
func New() *Module {
	return &Module{loaded: make(map[string]int)}
}

func (m *Module) Info() module.Info {
	return module.Info{
		Name:        "ingest",
		Version:     "0.1.0",
		Description: "CSV data loading for demand, telemetry and rental ledger",
		Required:    true,
		APIVersion:  module.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps module.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal ingest config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "ingest", migrations()); err != nil {
			return fmt.Errorf("ingest migrations: %w", err)
		}
		m.store = NewStore(deps.Store.DB())
	}

	m.bus = deps.Bus

	m.logger.Info("ingest module initialized", zap.String("data_dir", m.cfg.DataDir))
	return nil
}

// ValidateConfig implements module.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// Start loads each CSV and publishes the dataset synchronously, so every
// subscriber has the data before its own Start runs. A missing file only
// disables the capability that depends on it; the others still load.
func (m *Module) Start(ctx context.Context) error {
	if err := m.loadDemandFile(ctx); err != nil {
		return err
	}
	if err := m.loadTelemetryFile(ctx); err != nil {
		return err
	}
	if err := m.loadRentalsFile(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.loadedAt = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *Module) loadDemandFile(ctx context.Context) error {
	path := filepath.Join(m.cfg.DataDir, m.cfg.DemandFile)
	obs, err := loadDemand(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("demand file missing, forecasting will be unavailable", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("load demand csv: %w", err)
	}

	if m.store != nil {
		if err := m.store.ReplaceDemand(ctx, obs); err != nil {
			return fmt.Errorf("persist demand: %w", err)
		}
	}

	m.setLoaded("demand", len(obs))
	m.logger.Info("demand history loaded", zap.String("path", path), zap.Int("rows", len(obs)))

	if m.bus != nil {
		if err := m.bus.Publish(ctx, module.Event{
			Topic:     TopicDemandLoaded,
			Source:    "ingest",
			Timestamp: time.Now(),
			Payload:   obs,
		}); err != nil {
			return fmt.Errorf("publish demand: %w", err)
		}
	}
	return nil
}

func (m *Module) loadTelemetryFile(ctx context.Context) error {
	path := filepath.Join(m.cfg.DataDir, m.cfg.TelemetryFile)
	samples, err := loadTelemetry(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("telemetry file missing, anomaly detection will be unavailable", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("load telemetry csv: %w", err)
	}

	if m.store != nil {
		if err := m.store.ReplaceTelemetry(ctx, samples); err != nil {
			return fmt.Errorf("persist telemetry: %w", err)
		}
	}

	m.setLoaded("telemetry", len(samples))
	m.logger.Info("telemetry loaded", zap.String("path", path), zap.Int("rows", len(samples)))

	if m.bus != nil {
		if err := m.bus.Publish(ctx, module.Event{
			Topic:     TopicTelemetryLoaded,
			Source:    "ingest",
			Timestamp: time.Now(),
			Payload:   samples,
		}); err != nil {
			return fmt.Errorf("publish telemetry: %w", err)
		}
	}
	return nil
}

func (m *Module) loadRentalsFile(ctx context.Context) error {
	path := filepath.Join(m.cfg.DataDir, m.cfg.RentalsFile)
	records, err := loadRentals(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("rentals file missing, fleet ledger will be empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("load rentals csv: %w", err)
	}

	m.setLoaded("rentals", len(records))
	m.logger.Info("rental ledger loaded", zap.String("path", path), zap.Int("rows", len(records)))

	if m.bus != nil {
		if err := m.bus.Publish(ctx, module.Event{
			Topic:     TopicRentalsLoaded,
			Source:    "ingest",
			Timestamp: time.Now(),
			Payload:   records,
		}); err != nil {
			return fmt.Errorf("publish rentals: %w", err)
		}
	}
	return nil
}

func (m *Module) setLoaded(name string, rows int) {
	m.mu.Lock()
	m.loaded[name] = rows
	m.mu.Unlock()
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("ingest module stopped")
	return nil
}

// Health implements module.HealthChecker. Ingest is healthy as long as at
// least one dataset loaded; which capabilities are live shows in Details.
func (m *Module) Health(_ context.Context) module.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	details := make(map[string]string, len(m.loaded))
	for name, rows := range m.loaded {
		details[name] = fmt.Sprintf("%d rows", rows)
	}

	if len(m.loaded) == 0 {
		return module.HealthStatus{
			Status:  "unhealthy",
			Message: "no datasets loaded",
		}
	}
	return module.HealthStatus{Status: "healthy", Details: details}
}
