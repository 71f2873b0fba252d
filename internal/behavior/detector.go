package behavior

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// ErrInsufficientData is returned when an equipment's telemetry history is
// shorter than one full sequence. Short histories are rejected, never padded.
var ErrInsufficientData = errors.New("behavior: not enough telemetry to form a sequence")

// Detector applies the calibrated anomaly decision rule on top of a trained
// autoencoder: threshold = training baseline * multiplier, a fixed design
// constant rather than a learned quantity.
type Detector struct {
	ae         *Autoencoder
	multiplier float64
}

// NewDetector wraps a trained autoencoder with a threshold multiplier.
func NewDetector(ae *Autoencoder, multiplier float64) *Detector {
	return &Detector{ae: ae, multiplier: multiplier}
}

// Threshold returns the anomaly decision threshold.
func (d *Detector) Threshold() float64 {
	return d.ae.TrainingLoss() * d.multiplier
}

// Analyze scores the latest SequenceLength samples of one equipment and
// returns a fresh verdict. Verdicts are derived values, recomputed per call.
func (d *Detector) Analyze(equipmentID string, samples []fleet.TelemetrySample) (fleet.AnomalyVerdict, error) {
	if !d.ae.Trained() {
		return fleet.AnomalyVerdict{}, ErrNotTrained
	}
	seqLen := d.ae.SequenceLength
	if len(samples) < seqLen {
		return fleet.AnomalyVerdict{}, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientData, len(samples), seqLen)
	}

	latest := samples[len(samples)-seqLen:]
	window := make([]float64, seqLen)
	for i, s := range latest {
		window[i] = s.EngineLoad
	}

	score, err := d.ae.Score(window)
	if err != nil {
		return fleet.AnomalyVerdict{}, err
	}

	threshold := d.Threshold()
	return fleet.AnomalyVerdict{
		EquipmentID:         equipmentID,
		IsAnomaly:           score > threshold,
		ReconstructionError: score,
		Threshold:           threshold,
		Sequence:            latest,
		EvaluatedAt:         time.Now().UTC(),
	}, nil
}
