package timeseries

import "errors"

// ErrNotFitted is returned when Transform or InverseTransform is called
// before Fit.
var ErrNotFitted = errors.New("timeseries: scaler has not been fitted")

// MinMaxScaler rescales values linearly so the fitted data range maps onto
// the feature range [RangeMin, RangeMax]. The zero value scales onto [0, 1].
// Values outside the fitted range extrapolate beyond the target interval; no
// clamping is applied. A constant series (max == min) uses a unit
// denominator, so every fitted value maps to RangeMin.
type MinMaxScaler struct {
	// RangeMin and RangeMax bound the output interval. Leaving both at
	// zero selects the default [0, 1] range.
	RangeMin float64
	RangeMax float64

	min    float64
	max    float64
	fitted bool
}

// featureRange returns the output interval's lower bound and span.
func (s *MinMaxScaler) featureRange() (lo, span float64) {
	if s.RangeMax == s.RangeMin {
		return 0, 1
	}
	return s.RangeMin, s.RangeMax - s.RangeMin
}

// Fit records the minimum and maximum of the training data.
func (s *MinMaxScaler) Fit(data []float64) error {
	if len(data) == 0 {
		return errors.New("timeseries: cannot fit scaler on empty data")
	}
	if s.RangeMax < s.RangeMin {
		return errors.New("timeseries: scaler feature range is inverted")
	}

	s.min, s.max = data[0], data[0]
	for _, v := range data[1:] {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.fitted = true
	return nil
}

// Transform maps values from the fitted range onto the feature range.
func (s *MinMaxScaler) Transform(data []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}

	denom := s.max - s.min
	if denom == 0 {
		denom = 1
	}
	lo, span := s.featureRange()

	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = lo + (v-s.min)/denom*span
	}
	return out, nil
}

// InverseTransform maps scaled values back to the original range.
// It is the exact inverse of Transform.
func (s *MinMaxScaler) InverseTransform(data []float64) ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}

	denom := s.max - s.min
	if denom == 0 {
		denom = 1
	}
	lo, span := s.featureRange()

	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (v-lo)/span*denom + s.min
	}
	return out, nil
}

// FitTransform fits the scaler on data and returns the scaled values.
func (s *MinMaxScaler) FitTransform(data []float64) ([]float64, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// TransformValue scales a single value.
func (s *MinMaxScaler) TransformValue(v float64) (float64, error) {
	out, err := s.Transform([]float64{v})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// InverseValue unscales a single value.
func (s *MinMaxScaler) InverseValue(v float64) (float64, error) {
	out, err := s.InverseTransform([]float64{v})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}
