package demand

import (
	"math"
	"testing"
)

// sineWave returns n samples of a sine rescaled into [0.1, 0.9].
func sineWave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 + 0.4*math.Sin(2*math.Pi*float64(i)/12)
	}
	return out
}

func TestResidualNet_PredictBeforeFit(t *testing.T) {
	n := NewResidualNet(5, 8, 10, 0.05, 42)
	if _, err := n.PredictNext(make([]float64, 5)); err != ErrNotTrained {
		t.Fatalf("PredictNext before Fit: got %v, want ErrNotTrained", err)
	}
	if _, err := n.PredictAutoregressive(make([]float64, 5), 3); err != ErrNotTrained {
		t.Fatalf("PredictAutoregressive before Fit: got %v, want ErrNotTrained", err)
	}
}

func TestResidualNet_FitTooShort(t *testing.T) {
	n := NewResidualNet(10, 8, 10, 0.05, 42)
	if err := n.Fit(make([]float64, 10)); err == nil {
		t.Fatal("expected error when series has no training pairs")
	}
}

func TestResidualNet_LearnsPeriodicSignal(t *testing.T) {
	series := sineWave(200)
	n := NewResidualNet(12, 16, 150, 0.05, 42)
	if err := n.Fit(series); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Predict the step after the training series and compare with the
	// true continuation of the wave.
	window := series[len(series)-12:]
	got, err := n.PredictNext(window)
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	want := 0.5 + 0.4*math.Sin(2*math.Pi*float64(200)/12)
	if math.Abs(got-want) > 0.15 {
		t.Errorf("PredictNext = %.4f, want %.4f +- 0.15", got, want)
	}
}

func TestResidualNet_WindowLengthValidated(t *testing.T) {
	n := NewResidualNet(6, 8, 20, 0.05, 42)
	if err := n.Fit(sineWave(50)); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := n.PredictNext(make([]float64, 5)); err == nil {
		t.Error("PredictNext accepted a short window")
	}
	if _, err := n.PredictAutoregressive(make([]float64, 7), 3); err == nil {
		t.Error("PredictAutoregressive accepted a long window")
	}
}

func TestResidualNet_AutoregressiveFeedsPredictionsBack(t *testing.T) {
	series := sineWave(120)
	n := NewResidualNet(10, 12, 80, 0.05, 7)
	if err := n.Fit(series); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	window := series[len(series)-10:]
	preds, err := n.PredictAutoregressive(window, 5)
	if err != nil {
		t.Fatalf("PredictAutoregressive: %v", err)
	}
	if len(preds) != 5 {
		t.Fatalf("got %d predictions, want 5", len(preds))
	}

	// The first autoregressive step must equal a single-step prediction.
	first, err := n.PredictNext(window)
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	if preds[0] != first {
		t.Errorf("preds[0] = %.6f, PredictNext = %.6f", preds[0], first)
	}

	// The second step must come from the shifted window with preds[0]
	// appended, not from the original history.
	shifted := append(append([]float64{}, window[1:]...), preds[0])
	second, err := n.PredictNext(shifted)
	if err != nil {
		t.Fatalf("PredictNext shifted: %v", err)
	}
	if preds[1] != second {
		t.Errorf("preds[1] = %.6f, want prediction on fed-back window %.6f", preds[1], second)
	}

	// The input window must not be mutated by the loop.
	for i, v := range series[len(series)-10:] {
		if window[i] != v {
			t.Fatal("PredictAutoregressive mutated the caller's window")
		}
	}
}

func TestResidualNet_InferenceIsDeterministic(t *testing.T) {
	series := sineWave(120)
	window := series[len(series)-8:]

	n := NewResidualNet(8, 10, 40, 0.05, 42)
	if err := n.Fit(series); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	first, err := n.PredictAutoregressive(window, 30)
	if err != nil {
		t.Fatalf("PredictAutoregressive: %v", err)
	}
	second, err := n.PredictAutoregressive(window, 30)
	if err != nil {
		t.Fatalf("PredictAutoregressive: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("step %d differs between identical calls: %.10f vs %.10f", i, first[i], second[i])
		}
	}
}

func TestResidualNet_SeededTrainingIsReproducible(t *testing.T) {
	series := sineWave(100)
	window := series[len(series)-8:]

	a := NewResidualNet(8, 10, 40, 0.05, 99)
	b := NewResidualNet(8, 10, 40, 0.05, 99)
	if err := a.Fit(series); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if err := b.Fit(series); err != nil {
		t.Fatalf("Fit b: %v", err)
	}

	pa, _ := a.PredictNext(window)
	pb, _ := b.PredictNext(window)
	if pa != pb {
		t.Errorf("same seed, different predictions: %.8f vs %.8f", pa, pb)
	}

	c := NewResidualNet(8, 10, 40, 0.05, 7)
	if err := c.Fit(series); err != nil {
		t.Fatalf("Fit c: %v", err)
	}
	pc, _ := c.PredictNext(window)
	if pc == pa {
		t.Errorf("different seeds produced identical predictions %.8f", pa)
	}
}
