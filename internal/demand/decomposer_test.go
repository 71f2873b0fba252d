package demand

import (
	"math"
	"testing"
	"time"

	"github.com/fleetsight/fleetsight/internal/timeseries"
)

func day(i int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// dailySeries builds a series from a value function of the day index.
func dailySeries(n int, f func(i int) float64) timeseries.Series {
	s := make(timeseries.Series, n)
	for i := 0; i < n; i++ {
		s[i] = timeseries.Point{Date: day(i), Value: f(i)}
	}
	return s
}

func TestDecomposer_TooFewObservations(t *testing.T) {
	d := NewDecomposer()
	if _, err := d.Fit(timeseries.Series{{Date: day(0), Value: 1}}); err == nil {
		t.Fatal("expected error for single observation")
	}
	if _, err := d.Fit(nil); err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestDecomposer_RecoversLinearTrend(t *testing.T) {
	series := dailySeries(120, func(i int) float64 { return 10 + 0.5*float64(i) })

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for _, i := range []int{0, 30, 60, 119} {
		got := model.Predict(day(i))
		want := 10 + 0.5*float64(i)
		if math.Abs(got-want) > 1.5 {
			t.Errorf("Predict(day %d) = %.2f, want %.2f +- 1.5", i, got, want)
		}
	}
}

func TestDecomposer_RecoversAdditiveWeeklySeasonality(t *testing.T) {
	// Linear trend plus a pure weekly sinusoid. The fit should be near
	// exact because there is no noise and the default prior barely
	// shrinks the Fourier coefficients.
	series := dailySeries(140, func(i int) float64 {
		return 50 + 0.2*float64(i) + 8*math.Sin(2*math.Pi*float64(i)/7)
	})

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	residuals := model.Residuals()
	var sumAbs float64
	for _, r := range residuals {
		sumAbs += math.Abs(r)
	}
	mae := sumAbs / float64(len(residuals))
	if mae > 1.0 {
		t.Errorf("in-sample MAE = %.3f, want <= 1.0", mae)
	}
}

func TestDecomposer_SeasonalSwingsAreNotChangepoints(t *testing.T) {
	// Demand climbing 100 to 150 with a 5% multiplicative weekly swing.
	// The weekly oscillation must land in the seasonal component, not be
	// mistaken for trend shifts that bend the extrapolation.
	series := dailySeries(150, func(i int) float64 {
		trend := 100 + 50*float64(i)/149
		return trend * (1 + 0.05*math.Sin(2*math.Pi*float64(i)/7))
	})

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if len(model.changepoints) != 0 {
		t.Errorf("clean seasonal series produced %d changepoints, want 0", len(model.changepoints))
	}

	// The structural forecast alone must track the generating formula for
	// ten days past the end of history.
	for h := 0; h < 10; h++ {
		i := 150 + h
		trend := 100 + 50*float64(i)/149
		want := trend * (1 + 0.05*math.Sin(2*math.Pi*float64(i)/7))
		got := model.Predict(day(i))
		if relErr := math.Abs(got-want) / want; relErr > 0.05 {
			t.Fatalf("day +%d: predicted %.2f, want %.2f (rel err %.3f > 0.05)", h+1, got, want, relErr)
		}
	}
}

func TestDecomposer_DetectsLevelShift(t *testing.T) {
	// A genuine regime change halfway through must still pass the
	// significance gate that filters out seasonal oscillation.
	series := dailySeries(150, func(i int) float64 {
		if i < 75 {
			return 100
		}
		return 130
	})

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if len(model.changepoints) == 0 {
		t.Error("level shift produced no changepoints")
	}
}

func TestDecomposer_FittedAndResidualsAlign(t *testing.T) {
	series := dailySeries(60, func(i int) float64 { return 20 + float64(i%7) })

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	fitted := model.Fitted()
	residuals := model.Residuals()
	if len(fitted) != len(series) || len(residuals) != len(series) {
		t.Fatalf("got %d fitted / %d residuals, want %d each", len(fitted), len(residuals), len(series))
	}
	for i := range series {
		if math.Abs(series[i].Value-fitted[i]-residuals[i]) > 1e-9 {
			t.Fatalf("row %d: actual - fitted != residual", i)
		}
	}
}

func TestDecomposer_SortsUnorderedInput(t *testing.T) {
	ordered := dailySeries(30, func(i int) float64 { return float64(i) })
	shuffled := make(timeseries.Series, len(ordered))
	copy(shuffled, ordered)
	shuffled[0], shuffled[15] = shuffled[15], shuffled[0]
	shuffled[3], shuffled[27] = shuffled[27], shuffled[3]

	m1, err := NewDecomposer().Fit(ordered)
	if err != nil {
		t.Fatalf("Fit ordered: %v", err)
	}
	m2, err := NewDecomposer().Fit(shuffled)
	if err != nil {
		t.Fatalf("Fit shuffled: %v", err)
	}

	if got, want := m2.Predict(day(40)), m1.Predict(day(40)); math.Abs(got-want) > 1e-9 {
		t.Errorf("shuffled fit predicts %.6f, ordered fit %.6f", got, want)
	}
	if !m2.LastDate().Equal(day(29)) {
		t.Errorf("LastDate = %v, want %v", m2.LastDate(), day(29))
	}
}

func TestTrendModel_IntervalWidensWithHorizon(t *testing.T) {
	series := dailySeries(90, func(i int) float64 {
		return 100 + 0.3*float64(i) + 5*math.Sin(2*math.Pi*float64(i)/7)
	})

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	prev := 0.0
	for h := 0; h < 30; h++ {
		lower, upper := model.Interval(100, h)
		width := upper - lower
		if width <= prev {
			t.Fatalf("interval width at h=%d is %.4f, not wider than %.4f", h, width, prev)
		}
		prev = width
	}

	// Historical rows get the unscaled in-sample width.
	lower, upper := model.Interval(100, -1)
	histWidth := upper - lower
	l0, u0 := model.Interval(100, 0)
	if math.Abs(histWidth-(u0-l0)) > 1e-9 {
		t.Errorf("historical width %.4f, want same as h=0 width %.4f", histWidth, u0-l0)
	}
	if math.Abs(histWidth-2*1.28*model.Sigma()) > 1e-9 {
		t.Errorf("historical width %.4f, want 2*z*sigma = %.4f", histWidth, 2*1.28*model.Sigma())
	}
}

func TestTrendModel_ExtrapolatesBeyondHistory(t *testing.T) {
	series := dailySeries(100, func(i int) float64 { return 10 + 2*float64(i) })

	model, err := NewDecomposer().Fit(series)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// 30 days past the end the trend should keep climbing.
	inSample := model.Predict(day(99))
	future := model.Predict(day(129))
	if future <= inSample {
		t.Errorf("Predict(day 129) = %.2f, want > Predict(day 99) = %.2f", future, inSample)
	}
	want := 10 + 2*129.0
	if math.Abs(future-want)/want > 0.10 {
		t.Errorf("extrapolated Predict = %.2f, want %.2f +- 10%%", future, want)
	}
}
