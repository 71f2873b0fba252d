package demand

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/fleetsight/fleetsight/internal/timeseries"
	"gonum.org/v1/gonum/mat"
)

// ErrNotTrained is returned when prediction is requested before Fit.
var ErrNotTrained = errors.New("demand: residual net has not been trained")

// ResidualNet is a single-hidden-layer recurrent network trained on the
// decomposer's scaled residuals. It reads a window of Steps consecutive
// residuals and predicts the next one; multi-step forecasts feed each
// prediction back into the window autoregressively.
type ResidualNet struct {
	Steps        int
	Hidden       int
	Epochs       int
	LearningRate float64
	Seed         int64

	// Parameters. The input is a scalar per timestep, so wx is a vector.
	wx *mat.VecDense // input weights (Hidden)
	wh *mat.Dense    // recurrent weights (Hidden x Hidden)
	bh *mat.VecDense // hidden bias (Hidden)
	wo *mat.VecDense // output weights (Hidden)
	bo float64       // output bias

	trained bool
}

// NewResidualNet creates a residual learner with the given window length
// and hidden size. Weight initialization is seeded so training is
// reproducible.
func NewResidualNet(steps, hidden, epochs int, learningRate float64, seed int64) *ResidualNet {
	return &ResidualNet{
		Steps:        steps,
		Hidden:       hidden,
		Epochs:       epochs,
		LearningRate: learningRate,
		Seed:         seed,
	}
}

func (n *ResidualNet) initWeights() {
	rng := rand.New(rand.NewSource(n.Seed))
	scale := 1.0 / math.Sqrt(float64(n.Hidden))

	uniform := func(size int) []float64 {
		out := make([]float64, size)
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * scale
		}
		return out
	}

	n.wx = mat.NewVecDense(n.Hidden, uniform(n.Hidden))
	n.wh = mat.NewDense(n.Hidden, n.Hidden, uniform(n.Hidden*n.Hidden))
	n.bh = mat.NewVecDense(n.Hidden, nil)
	n.wo = mat.NewVecDense(n.Hidden, uniform(n.Hidden))
	n.bo = 0
}

// Fit trains the network on a scaled residual series using one-step-ahead
// supervision and backpropagation through time. The series must be longer
// than Steps so at least one training pair exists.
func (n *ResidualNet) Fit(scaled []float64) error {
	inputs, targets := timeseries.WindowsWithTargets(scaled, n.Steps)
	if len(inputs) == 0 {
		return fmt.Errorf("demand: need more than %d residuals to train, got %d", n.Steps, len(scaled))
	}

	n.initWeights()

	for epoch := 0; epoch < n.Epochs; epoch++ {
		for i, window := range inputs {
			n.trainStep(window, targets[i])
		}
	}

	n.trained = true
	return nil
}

// trainStep runs one forward/backward pass and applies an SGD update.
func (n *ResidualNet) trainStep(window []float64, target float64) {
	h := n.Hidden
	T := len(window)

	// Forward pass, keeping hidden states for BPTT.
	states := make([]*mat.VecDense, T+1)
	states[0] = mat.NewVecDense(h, nil)
	for t := 0; t < T; t++ {
		z := mat.NewVecDense(h, nil)
		z.MulVec(n.wh, states[t])
		z.AddScaledVec(z, window[t], n.wx)
		z.AddVec(z, n.bh)
		for i := 0; i < h; i++ {
			z.SetVec(i, math.Tanh(z.AtVec(i)))
		}
		states[t+1] = z
	}

	y := mat.Dot(n.wo, states[T]) + n.bo
	dy := y - target // d(MSE/2)/dy

	// Backward pass.
	dwx := mat.NewVecDense(h, nil)
	dwh := mat.NewDense(h, h, nil)
	dbh := mat.NewVecDense(h, nil)
	dwo := mat.NewVecDense(h, nil)
	dwo.ScaleVec(dy, states[T])
	dbo := dy

	dh := mat.NewVecDense(h, nil)
	dh.ScaleVec(dy, n.wo)

	for t := T; t >= 1; t-- {
		// dz = dh * tanh'(z) = dh * (1 - h_t^2)
		dz := mat.NewVecDense(h, nil)
		for i := 0; i < h; i++ {
			ht := states[t].AtVec(i)
			dz.SetVec(i, clipGrad(dh.AtVec(i)*(1-ht*ht)))
		}

		dwx.AddScaledVec(dwx, window[t-1], dz)
		dbh.AddVec(dbh, dz)

		var outer mat.Dense
		outer.Outer(1, dz, states[t-1])
		dwh.Add(dwh, &outer)

		dh.MulVec(n.wh.T(), dz)
	}

	// SGD update.
	lr := n.LearningRate
	n.wx.AddScaledVec(n.wx, -lr, dwx)
	n.bh.AddScaledVec(n.bh, -lr, dbh)
	n.wo.AddScaledVec(n.wo, -lr, dwo)
	n.bo -= lr * dbo

	var scaled mat.Dense
	scaled.Scale(-lr, dwh)
	n.wh.Add(n.wh, &scaled)
}

// clipGrad bounds a gradient component to keep BPTT stable.
func clipGrad(g float64) float64 {
	const limit = 5.0
	if g > limit {
		return limit
	}
	if g < -limit {
		return -limit
	}
	return g
}

// forward runs the network over a window and returns the prediction.
func (n *ResidualNet) forward(window []float64) float64 {
	h := n.Hidden
	state := mat.NewVecDense(h, nil)
	for _, x := range window {
		z := mat.NewVecDense(h, nil)
		z.MulVec(n.wh, state)
		z.AddScaledVec(z, x, n.wx)
		z.AddVec(z, n.bh)
		for i := 0; i < h; i++ {
			z.SetVec(i, math.Tanh(z.AtVec(i)))
		}
		state = z
	}
	return mat.Dot(n.wo, state) + n.bo
}

// PredictNext predicts the residual following a window of Steps scaled
// residuals.
func (n *ResidualNet) PredictNext(window []float64) (float64, error) {
	if !n.trained {
		return 0, ErrNotTrained
	}
	if len(window) != n.Steps {
		return 0, fmt.Errorf("demand: window length %d, want %d", len(window), n.Steps)
	}
	return n.forward(window), nil
}

// PredictAutoregressive forecasts horizon residuals ahead of the window,
// feeding each prediction back as the newest input. All values stay in the
// scaled domain; the caller inverse-transforms the batch.
func (n *ResidualNet) PredictAutoregressive(window []float64, horizon int) ([]float64, error) {
	if !n.trained {
		return nil, ErrNotTrained
	}
	if len(window) != n.Steps {
		return nil, fmt.Errorf("demand: window length %d, want %d", len(window), n.Steps)
	}

	current := make([]float64, n.Steps)
	copy(current, window)

	out := make([]float64, 0, horizon)
	for i := 0; i < horizon; i++ {
		next := n.forward(current)
		out = append(out, next)
		copy(current, current[1:])
		current[n.Steps-1] = next
	}
	return out, nil
}

// Trained reports whether Fit has completed.
func (n *ResidualNet) Trained() bool { return n.trained }
