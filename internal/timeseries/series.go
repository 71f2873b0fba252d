// Package timeseries provides the primitives shared by the forecasting and
// anomaly-detection modules: date-indexed series, sliding windows, and
// min-max feature scaling.
package timeseries

import (
	"sort"
	"time"
)

// Point is a single dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is an ordered sequence of dated observations.
type Series []Point

// Sort orders the series by ascending date, in place.
func (s Series) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

// Values returns the observation values in series order.
func (s Series) Values() []float64 {
	vals := make([]float64, len(s))
	for i, p := range s {
		vals[i] = p.Value
	}
	return vals
}

// Dates returns the observation dates in series order.
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s))
	for i, p := range s {
		dates[i] = p.Date
	}
	return dates
}

// Span returns the first and last dates of a sorted series.
// Both are zero when the series is empty.
func (s Series) Span() (first, last time.Time) {
	if len(s) == 0 {
		return
	}
	return s[0].Date, s[len(s)-1].Date
}
