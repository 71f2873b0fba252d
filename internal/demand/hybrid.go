package demand

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight/internal/timeseries"
	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// ErrInsufficientHistory is returned by Fit when the demand history cannot
// fill even one residual training window.
var ErrInsufficientHistory = errors.New("demand: history too short for the residual training window")

// HybridForecaster combines the structural decomposer with the residual
// learner: the decomposer captures trend and seasonality, the network
// learns the leftover signal, and forecasts add the two together.
type HybridForecaster struct {
	decomposer *Decomposer
	net        *ResidualNet

	model           *TrendModel
	scaler          timeseries.MinMaxScaler
	history         timeseries.Series // sorted
	scaledResiduals []float64
	trained         bool
}

// NewHybridForecaster wires a decomposer and residual net built from config.
func NewHybridForecaster(cfg Config) *HybridForecaster {
	dec := NewDecomposer()
	dec.ChangepointPriorScale = cfg.ChangepointPriorScale
	dec.SeasonalityPriorScale = cfg.SeasonalityPriorScale

	return &HybridForecaster{
		decomposer: dec,
		net:        NewResidualNet(cfg.ResidualSteps, cfg.HiddenSize, cfg.Epochs, cfg.LearningRate, cfg.Seed),
	}
}

// Fit trains both halves of the model on a dated demand series. A history
// too short to form even one residual training window is an error: the
// forecaster trains fully or not at all, never a silent structural-only
// approximation.
func (f *HybridForecaster) Fit(series timeseries.Series) error {
	if len(series) <= f.net.Steps {
		return fmt.Errorf("%w: need more than %d observations, got %d",
			ErrInsufficientHistory, f.net.Steps, len(series))
	}

	model, err := f.decomposer.Fit(series)
	if err != nil {
		return err
	}

	sorted := make(timeseries.Series, len(series))
	copy(sorted, series)
	sorted.Sort()

	residuals := model.Residuals()
	scaled, err := f.scaler.FitTransform(residuals)
	if err != nil {
		return fmt.Errorf("demand: scaling residuals: %w", err)
	}

	if err := f.net.Fit(scaled); err != nil {
		return err
	}

	f.model = model
	f.history = sorted
	f.scaledResiduals = scaled
	f.trained = true
	return nil
}

// Trained reports whether Fit has completed.
func (f *HybridForecaster) Trained() bool { return f.trained }

// Forecast produces one row per historical date plus one per future period.
// Historical rows carry the actual observation alongside the in-sample
// estimate (a left join of the timeline with actuals); future rows have no
// actual. Residual corrections apply to future rows only, and uncertainty
// bounds come from the decomposer, widening with the horizon.
func (f *HybridForecaster) Forecast(periods int) ([]fleet.ForecastRow, error) {
	if !f.trained {
		return nil, ErrNotTrained
	}
	if periods < 1 {
		return nil, fmt.Errorf("demand: periods must be positive, got %d", periods)
	}

	rows := make([]fleet.ForecastRow, 0, len(f.history)+periods)

	fitted := f.model.Fitted()
	for i, p := range f.history {
		actual := p.Value
		lower, upper := f.model.Interval(fitted[i], -1)
		rows = append(rows, fleet.ForecastRow{
			Date:     p.Date,
			Actual:   &actual,
			Estimate: fitted[i],
			Lower:    lower,
			Upper:    upper,
		})
	}

	// Residual corrections for the future, predicted autoregressively in
	// the scaled domain and inverse-transformed as a batch.
	window := f.scaledResiduals[len(f.scaledResiduals)-f.net.Steps:]
	scaledPreds, err := f.net.PredictAutoregressive(window, periods)
	if err != nil {
		return nil, err
	}
	corrections, err := f.scaler.InverseTransform(scaledPreds)
	if err != nil {
		return nil, err
	}

	last := f.model.LastDate()
	for h := 0; h < periods; h++ {
		date := last.AddDate(0, 0, h+1)
		estimate := f.model.Predict(date) + corrections[h]
		lower, upper := f.model.Interval(estimate, h)
		rows = append(rows, fleet.ForecastRow{
			Date:     date,
			Estimate: estimate,
			Lower:    lower,
			Upper:    upper,
		})
	}

	return rows, nil
}

// HistorySpan returns the first and last dates of the training history.
func (f *HybridForecaster) HistorySpan() (first, last time.Time) {
	return f.history.Span()
}
