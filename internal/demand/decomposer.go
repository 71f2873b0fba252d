package demand

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetsight/fleetsight/internal/timeseries"
	"gonum.org/v1/gonum/stat"
)

// Decomposer fits a piecewise-linear trend plus weekly and yearly Fourier
// seasonality to a daily demand series. It is the structural half of the
// hybrid forecaster; the residual learner picks up what it leaves behind.
type Decomposer struct {
	ChangepointPriorScale float64 // Flexibility of trend changes
	SeasonalityPriorScale float64 // Larger values allow larger seasonal swings
	ChangepointRange      float64 // Proportion of history eligible for changepoints
	NumChangepoints       int
	WeeklyOrder           int // Fourier order for the 7-day cycle
	YearlyOrder           int // Fourier order for the 365.25-day cycle
	IntervalZ             float64 // z-score for the uncertainty interval width
}

// NewDecomposer returns a decomposer with the defaults used in production.
func NewDecomposer() *Decomposer {
	return &Decomposer{
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10.0,
		ChangepointRange:      0.8,
		NumChangepoints:       25,
		WeeklyOrder:           3,
		YearlyOrder:           10,
		IntervalZ:             1.28, // 80% interval
	}
}

// TrendModel holds a fitted decomposition.
type TrendModel struct {
	dec *Decomposer

	// Piecewise-linear trend in normalized time.
	k            float64
	m            float64
	changepoints []float64
	deltas       []float64

	// Fourier coefficients, interleaved [sin_1, cos_1, sin_2, cos_2, ...].
	weeklyCoeffs []float64
	yearlyCoeffs []float64

	// Normalization.
	yMin, yScale float64
	tMin, tScale float64

	sigma    float64 // in-sample residual standard deviation
	lastDate time.Time

	fitted    []float64
	residuals []float64
}

// Fit estimates trend and seasonality from a dated demand series.
// The series is sorted by date internally; dates need not be contiguous.
func (d *Decomposer) Fit(series timeseries.Series) (*TrendModel, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("demand: need at least 2 observations to fit, got %d", len(series))
	}

	sorted := make(timeseries.Series, len(series))
	copy(sorted, series)
	sorted.Sort()

	n := len(sorted)
	model := &TrendModel{dec: d, lastDate: sorted[n-1].Date}

	t := make([]float64, n)
	y := sorted.Values()

	model.tMin = float64(sorted[0].Date.Unix())
	model.tScale = float64(sorted[n-1].Date.Unix()) - model.tMin
	if model.tScale == 0 {
		model.tScale = 1
	}
	for i, p := range sorted {
		t[i] = (float64(p.Date.Unix()) - model.tMin) / model.tScale
	}

	// Normalize y to [0, 1] so the trend and seasonal magnitudes are comparable.
	model.yMin, model.yScale = y[0], 1.0
	yMax := y[0]
	for _, v := range y {
		if v < model.yMin {
			model.yMin = v
		}
		if v > yMax {
			yMax = v
		}
	}
	model.yScale = yMax - model.yMin
	if model.yScale == 0 {
		model.yScale = 1
	}
	yNorm := make([]float64, n)
	for i := range y {
		yNorm[i] = (y[i] - model.yMin) / model.yScale
	}

	d.fitTrend(model, t, yNorm)

	detrended := make([]float64, n)
	for i := range t {
		detrended[i] = yNorm[i] - model.trendAt(t[i])
	}

	if d.WeeklyOrder > 0 {
		model.weeklyCoeffs = d.fitFourier(sorted, detrended, 7.0, d.WeeklyOrder)
	}
	if d.YearlyOrder > 0 {
		model.yearlyCoeffs = d.fitFourier(sorted, detrended, 365.25, d.YearlyOrder)
	}

	// In-sample fit and residuals drive both the interval width and the
	// residual learner downstream.
	model.fitted = make([]float64, n)
	model.residuals = make([]float64, n)
	for i, p := range sorted {
		model.fitted[i] = model.Predict(p.Date)
		model.residuals[i] = p.Value - model.fitted[i]
	}
	model.sigma = stat.StdDev(model.residuals, nil)
	if model.sigma == 0 || math.IsNaN(model.sigma) {
		model.sigma = 1
	}

	return model, nil
}

// fitTrend estimates the base slope/offset by least squares, then places
// changepoints where the residual mean shifts most.
func (d *Decomposer) fitTrend(model *TrendModel, t, y []float64) {
	n := len(t)

	sumT, sumY, sumTY, sumT2 := 0.0, 0.0, 0.0, 0.0
	for i := range t {
		sumT += t[i]
		sumY += y[i]
		sumTY += t[i] * y[i]
		sumT2 += t[i] * t[i]
	}

	nf := float64(n)
	denom := nf*sumT2 - sumT*sumT
	if denom == 0 {
		model.k = 0
		model.m = sumY / nf
	} else {
		model.k = (nf*sumTY - sumT*sumY) / denom
		model.m = (sumY - model.k*sumT) / nf
	}

	if d.NumChangepoints <= 0 || n <= d.NumChangepoints {
		return
	}

	w := changepointWindow(n)
	idxs := d.detectChangepoints(t, y, model.k, model.m, w)
	model.changepoints = make([]float64, 0, len(idxs))
	model.deltas = make([]float64, 0, len(idxs))
	for _, idx := range idxs {
		lo, hi := idx-w, idx+w
		if lo < 0 || hi >= n {
			continue
		}
		localSlope, ok := slopeLSQ(t[lo:hi+1], y[lo:hi+1])
		if !ok {
			continue
		}
		model.changepoints = append(model.changepoints, t[idx])
		model.deltas = append(model.deltas, (localSlope-model.k)*d.ChangepointPriorScale)
	}
}

// changepointWindow returns the half-window used for changepoint scoring and
// local slope estimation: whole weekly periods, so seasonal swings cancel
// out of window means instead of registering as trend shifts.
func changepointWindow(n int) int {
	w := n / 20
	if w < 7 {
		return 7
	}
	return ((w + 6) / 7) * 7
}

// slopeLSQ fits y = a + b*x over the window by least squares and returns b.
func slopeLSQ(x, y []float64) (float64, bool) {
	n := float64(len(x))
	sumX, sumY, sumXY, sumX2 := 0.0, 0.0, 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// detectChangepoints scores candidate indices by the shift in residual mean
// across whole-period windows. Only shifts that stand out against the
// overall residual spread count; a clean seasonal series yields none.
func (d *Decomposer) detectChangepoints(t, y []float64, k, m float64, w int) []int {
	n := len(t)
	rangeEnd := int(float64(n) * d.ChangepointRange)
	if rangeEnd <= w || n <= 2*w {
		return nil
	}

	residuals := make([]float64, n)
	for i := range t {
		residuals[i] = y[i] - (k*t[i] + m)
	}
	residSigma := stat.StdDev(residuals, nil)
	if residSigma == 0 || math.IsNaN(residSigma) {
		return nil
	}
	minScore := 0.5 * residSigma

	type candidate struct {
		idx   int
		score float64
	}
	var candidates []candidate
	for i := w; i < rangeEnd-w; i++ {
		before := stat.Mean(residuals[i-w:i], nil)
		after := stat.Mean(residuals[i:i+w], nil)
		score := math.Abs(after - before)
		if score < minScore {
			continue
		}
		candidates = append(candidates, candidate{idx: i, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	numCP := d.NumChangepoints
	if numCP > len(candidates) {
		numCP = len(candidates)
	}
	result := make([]int, numCP)
	for i := 0; i < numCP; i++ {
		result[i] = candidates[i].idx
	}
	sort.Ints(result)
	return result
}

// fitFourier projects the detrended series onto sin/cos harmonics of the
// given period (days) by regularized least squares. The shrinkage term
// 1/SeasonalityPriorScale damps coefficients when the prior is small.
func (d *Decomposer) fitFourier(series timeseries.Series, detrended []float64, period float64, order int) []float64 {
	coeffs := make([]float64, 2*order)
	periodSec := period * 24 * 3600

	shrink := 0.0
	if d.SeasonalityPriorScale > 0 {
		shrink = 1.0 / d.SeasonalityPriorScale
	}

	for k := 1; k <= order; k++ {
		sinSum, cosSum := 0.0, 0.0
		sinSqSum, cosSqSum := 0.0, 0.0

		for i, p := range series {
			phase := 2.0 * math.Pi * float64(k) * float64(p.Date.Unix()) / periodSec
			sinVal := math.Sin(phase)
			cosVal := math.Cos(phase)

			sinSum += detrended[i] * sinVal
			cosSum += detrended[i] * cosVal
			sinSqSum += sinVal * sinVal
			cosSqSum += cosVal * cosVal
		}

		if sinSqSum > 0 {
			coeffs[2*(k-1)] = sinSum / (sinSqSum + shrink)
		}
		if cosSqSum > 0 {
			coeffs[2*(k-1)+1] = cosSum / (cosSqSum + shrink)
		}
	}

	return coeffs
}

// trendAt evaluates the piecewise-linear trend at normalized time.
func (m *TrendModel) trendAt(t float64) float64 {
	trend := m.k*t + m.m
	for i, cp := range m.changepoints {
		if t > cp {
			trend += m.deltas[i] * (t - cp)
		}
	}
	return trend
}

func seasonalityAt(coeffs []float64, date time.Time, period float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	periodSec := period * 24 * 3600
	tSec := float64(date.Unix())

	result := 0.0
	order := len(coeffs) / 2
	for k := 1; k <= order; k++ {
		phase := 2.0 * math.Pi * float64(k) * tSec / periodSec
		result += coeffs[2*(k-1)] * math.Sin(phase)
		result += coeffs[2*(k-1)+1] * math.Cos(phase)
	}
	return result
}

// Predict evaluates trend plus seasonality at the given date, on the
// original scale. Dates past the end of history extrapolate the trend.
func (m *TrendModel) Predict(date time.Time) float64 {
	tNorm := (float64(date.Unix()) - m.tMin) / m.tScale

	v := m.trendAt(tNorm)
	v += seasonalityAt(m.weeklyCoeffs, date, 7.0)
	v += seasonalityAt(m.yearlyCoeffs, date, 365.25)

	return v*m.yScale + m.yMin
}

// Interval returns the lower and upper uncertainty bounds around a point
// estimate h steps past the end of history. Bounds widen with sqrt(h+1);
// h < 0 (historical dates) uses the in-sample sigma unscaled.
func (m *TrendModel) Interval(estimate float64, h int) (lower, upper float64) {
	factor := 1.0
	if h >= 0 {
		factor = math.Sqrt(float64(h + 1))
	}
	margin := m.dec.IntervalZ * m.sigma * factor
	return estimate - margin, estimate + margin
}

// Fitted returns in-sample predictions in date order.
func (m *TrendModel) Fitted() []float64 { return m.fitted }

// Residuals returns actual minus fitted, in date order. This is the series
// the residual learner trains on.
func (m *TrendModel) Residuals() []float64 { return m.residuals }

// Sigma returns the in-sample residual standard deviation.
func (m *TrendModel) Sigma() float64 { return m.sigma }

// LastDate returns the final date of the training history.
func (m *TrendModel) LastDate() time.Time { return m.lastDate }
