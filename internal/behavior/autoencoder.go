// Package behavior detects abnormal equipment operation by reconstructing
// engine-load sequences with an autoencoder trained on known-normal history.
// Sequences the model cannot reconstruct are flagged as anomalous.
package behavior

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/fleetsight/fleetsight/internal/timeseries"
	"gonum.org/v1/gonum/mat"
)

// ErrNotTrained is returned when scoring is requested before Train.
var ErrNotTrained = errors.New("behavior: autoencoder has not been trained")

// Autoencoder compresses a fixed-length window of scaled engine-load values
// into a latent vector and reconstructs the window from it. Trained only on
// normal operation, so reconstruction error doubles as an anomaly score.
// State moves one way: Untrained until Train succeeds, then immutable.
type Autoencoder struct {
	SequenceLength  int
	LatentSize      int
	Epochs          int
	LearningRate    float64
	ValidationSplit float64
	Seed            int64

	scaler timeseries.MinMaxScaler

	// Encoder: latent = tanh(we*x + be). Decoder mirrors it linearly:
	// xhat = wd*latent + bd.
	we *mat.Dense    // LatentSize x SequenceLength
	be *mat.VecDense // LatentSize
	wd *mat.Dense    // SequenceLength x LatentSize
	bd *mat.VecDense // SequenceLength

	trainingLoss   float64
	validationLoss float64
	trained        bool
}

// NewAutoencoder creates an autoencoder for windows of the given length.
func NewAutoencoder(cfg Config) *Autoencoder {
	return &Autoencoder{
		SequenceLength:  cfg.SequenceLength,
		LatentSize:      cfg.LatentSize,
		Epochs:          cfg.Epochs,
		LearningRate:    cfg.LearningRate,
		ValidationSplit: cfg.ValidationSplit,
		Seed:            cfg.Seed,
	}
}

func (a *Autoencoder) initWeights() {
	rng := rand.New(rand.NewSource(a.Seed))

	uniform := func(size int, scale float64) []float64 {
		out := make([]float64, size)
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * scale
		}
		return out
	}

	encScale := 1.0 / math.Sqrt(float64(a.SequenceLength))
	decScale := 1.0 / math.Sqrt(float64(a.LatentSize))

	a.we = mat.NewDense(a.LatentSize, a.SequenceLength, uniform(a.LatentSize*a.SequenceLength, encScale))
	a.be = mat.NewVecDense(a.LatentSize, nil)
	a.wd = mat.NewDense(a.SequenceLength, a.LatentSize, uniform(a.SequenceLength*a.LatentSize, decScale))
	a.bd = mat.NewVecDense(a.SequenceLength, nil)
}

// Train fits the scaler on the normal series, builds all overlapping windows
// of SequenceLength, and trains the network by gradient descent on mean
// absolute reconstruction error. The last ValidationSplit fraction of windows
// is held out without shuffling; operational drift is time-correlated, so a
// random split would leak future behavior into training.
func (a *Autoencoder) Train(values []float64) error {
	if a.trained {
		return errors.New("behavior: autoencoder is already trained")
	}
	if len(values) < a.SequenceLength {
		return fmt.Errorf("behavior: need at least %d samples to train, got %d", a.SequenceLength, len(values))
	}

	scaled, err := a.scaler.FitTransform(values)
	if err != nil {
		return fmt.Errorf("behavior: scaling training data: %w", err)
	}

	windows := timeseries.Windows(scaled, a.SequenceLength)
	valCount := int(float64(len(windows)) * a.ValidationSplit)
	trainWindows := windows[:len(windows)-valCount]
	valWindows := windows[len(windows)-valCount:]

	a.initWeights()

	for epoch := 0; epoch < a.Epochs; epoch++ {
		for _, w := range trainWindows {
			a.trainStep(w)
		}
	}

	a.trainingLoss = a.meanLoss(trainWindows)
	if len(valWindows) > 0 {
		a.validationLoss = a.meanLoss(valWindows)
	}
	a.trained = true
	return nil
}

// trainStep runs one forward/backward pass and applies an SGD update.
// The MAE gradient with respect to the reconstruction is sign(xhat - x)/n.
func (a *Autoencoder) trainStep(window []float64) {
	x := mat.NewVecDense(a.SequenceLength, window)
	latent, xhat := a.reconstruct(x)

	n := float64(a.SequenceLength)
	g := mat.NewVecDense(a.SequenceLength, nil)
	for i := 0; i < a.SequenceLength; i++ {
		diff := xhat.AtVec(i) - x.AtVec(i)
		switch {
		case diff > 0:
			g.SetVec(i, 1/n)
		case diff < 0:
			g.SetVec(i, -1/n)
		}
	}

	// Decoder gradients.
	var dwd mat.Dense
	dwd.Outer(1, g, latent)

	// Backprop through the decoder and the tanh nonlinearity.
	dlatent := mat.NewVecDense(a.LatentSize, nil)
	dlatent.MulVec(a.wd.T(), g)
	for i := 0; i < a.LatentSize; i++ {
		z := latent.AtVec(i)
		dlatent.SetVec(i, dlatent.AtVec(i)*(1-z*z))
	}

	var dwe mat.Dense
	dwe.Outer(1, dlatent, x)

	lr := a.LearningRate
	var scaledE, scaledD mat.Dense
	scaledE.Scale(-lr, &dwe)
	scaledD.Scale(-lr, &dwd)
	a.we.Add(a.we, &scaledE)
	a.wd.Add(a.wd, &scaledD)
	a.be.AddScaledVec(a.be, -lr, dlatent)
	a.bd.AddScaledVec(a.bd, -lr, g)
}

// reconstruct encodes and decodes one scaled window.
func (a *Autoencoder) reconstruct(x *mat.VecDense) (latent, xhat *mat.VecDense) {
	latent = mat.NewVecDense(a.LatentSize, nil)
	latent.MulVec(a.we, x)
	latent.AddVec(latent, a.be)
	for i := 0; i < a.LatentSize; i++ {
		latent.SetVec(i, math.Tanh(latent.AtVec(i)))
	}

	xhat = mat.NewVecDense(a.SequenceLength, nil)
	xhat.MulVec(a.wd, latent)
	xhat.AddVec(xhat, a.bd)
	return latent, xhat
}

// meanLoss returns the mean absolute reconstruction error over windows.
func (a *Autoencoder) meanLoss(windows [][]float64) float64 {
	if len(windows) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range windows {
		x := mat.NewVecDense(a.SequenceLength, w)
		_, xhat := a.reconstruct(x)
		for i := 0; i < a.SequenceLength; i++ {
			total += math.Abs(xhat.AtVec(i) - x.AtVec(i))
		}
	}
	return total / (float64(len(windows)) * float64(a.SequenceLength))
}

// Score scales a raw window with the stored scaler (never refit),
// reconstructs it, and returns the mean absolute difference.
func (a *Autoencoder) Score(window []float64) (float64, error) {
	if !a.trained {
		return 0, ErrNotTrained
	}
	if len(window) != a.SequenceLength {
		return 0, fmt.Errorf("behavior: window length %d, want %d", len(window), a.SequenceLength)
	}

	scaled, err := a.scaler.Transform(window)
	if err != nil {
		return 0, err
	}

	x := mat.NewVecDense(a.SequenceLength, scaled)
	_, xhat := a.reconstruct(x)

	total := 0.0
	for i := 0; i < a.SequenceLength; i++ {
		total += math.Abs(xhat.AtVec(i) - x.AtVec(i))
	}
	return total / float64(a.SequenceLength), nil
}

// TrainingLoss returns the mean training-set reconstruction error, the
// baseline the anomaly threshold is calibrated from.
func (a *Autoencoder) TrainingLoss() float64 { return a.trainingLoss }

// ValidationLoss returns the held-out reconstruction error.
func (a *Autoencoder) ValidationLoss() float64 { return a.validationLoss }

// Trained reports whether Train has completed.
func (a *Autoencoder) Trained() bool { return a.trained }
