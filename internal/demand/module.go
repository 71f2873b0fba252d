// Package demand forecasts daily rental demand by combining a trend and
// seasonality decomposition with a recurrent residual learner.
package demand

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsight/fleetsight/internal/timeseries"
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

// Module implements the demand forecasting module.
type Module struct {
	logger *zap.Logger
	cfg    Config
	store  *Store
	bus    module.EventBus

	mu         sync.RWMutex
	series     timeseries.Series
	forecaster *HybridForecaster
	trainedAt  time.Time
}

// New creates a demand module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() module.Info {
	return module.Info{
		Name:         "demand",
		Version:      "0.1.0",
		Description:  "Hybrid demand forecasting for the rental fleet",
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
			return fmt.Errorf("unmarshal demand config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "demand", migrations()); err != nil {
			return fmt.Errorf("demand migrations: %w", err)
		}
		m.store = NewStore(deps.Store.DB())
	}

	m.bus = deps.Bus

	m.logger.Info("demand module initialized",
		zap.Float64("changepoint_prior_scale", m.cfg.ChangepointPriorScale),
		zap.Float64("seasonality_prior_scale", m.cfg.SeasonalityPriorScale),
		zap.Int("residual_steps", m.cfg.ResidualSteps),
		zap.Int("hidden_size", m.cfg.HiddenSize),
		zap.Int("max_horizon", m.cfg.MaxHorizon),
	)
	return nil
}

// ValidateConfig implements module.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// Subscriptions implements module.EventSubscriber. The ingest module
// publishes demand history during its Start, which runs before ours.
func (m *Module) Subscriptions() []module.Subscription {
	return []module.Subscription{
		{Topic: TopicDemandLoaded, Handler: m.handleDemandLoaded},
	}
}

func (m *Module) handleDemandLoaded(_ context.Context, event module.Event) {
	obs, ok := event.Payload.([]fleet.DemandObservation)
	if !ok {
		m.logger.Warn("unexpected payload on demand topic",
			zap.String("topic", event.Topic),
			zap.String("source", event.Source))
		return
	}

	series := make(timeseries.Series, 0, len(obs))
	for _, o := range obs {
		series = append(series, timeseries.Point{Date: o.Date, Value: o.Count})
	}

	m.mu.Lock()
	m.series = series
	m.mu.Unlock()

	m.logger.Debug("demand history received", zap.Int("observations", len(obs)))
}

// Start trains the forecaster on whatever history ingest delivered.
// Training is synchronous so the model is ready before traffic arrives;
// with no data the module stays up but reports untrained.
func (m *Module) Start(ctx context.Context) error {
	m.mu.RLock()
	series := m.series
	m.mu.RUnlock()

	if len(series) == 0 {
		m.logger.Warn("no demand history available, forecaster not trained")
		return nil
	}

	started := time.Now()
	forecaster := NewHybridForecaster(m.cfg)
	if err := forecaster.Fit(series); err != nil {
		// Fatal for this capability only: the module stays up and
		// reports untrained while the rest of the service runs.
		m.logger.Error("demand forecaster training failed, forecasts unavailable", zap.Error(err))
		return nil
	}

	m.mu.Lock()
	m.forecaster = forecaster
	m.trainedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info("demand forecaster trained",
		zap.Int("observations", len(series)),
		zap.Duration("elapsed", time.Since(started)))

	if m.bus != nil {
		m.bus.PublishAsync(ctx, module.Event{
			Topic:     TopicModelTrained,
			Source:    "demand",
			Timestamp: time.Now(),
			Payload:   map[string]any{"observations": len(series)},
		})
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("demand module stopped")
	return nil
}

// Health implements module.HealthChecker.
func (m *Module) Health(_ context.Context) module.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.forecaster == nil || !m.forecaster.Trained() {
		return module.HealthStatus{
			Status:  "unhealthy",
			Message: "forecaster not trained",
			Details: map[string]string{"observations": fmt.Sprintf("%d", len(m.series))},
		}
	}

	first, last := m.forecaster.HistorySpan()
	return module.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"observations":  fmt.Sprintf("%d", len(m.series)),
			"history_start": first.Format("2006-01-02"),
			"history_end":   last.Format("2006-01-02"),
			"trained_at":    m.trainedAt.Format(time.RFC3339),
		},
	}
}

func (m *Module) currentForecaster() *HybridForecaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forecaster
}
