package stats

import (
	"errors"
	"math"
	"testing"
)

const float64EqualityThreshold = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= float64EqualityThreshold
}

func TestConfidenceKnownValues(t *testing.T) {
	iv, err := Confidence([]float64{10, 20, 30}, 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(iv.Mean, 20) {
		t.Errorf("mean = %v, want 20", iv.Mean)
	}
	if !(iv.Lower < 20 && 20 < iv.Upper) {
		t.Errorf("interval [%v, %v] does not strictly contain 20", iv.Lower, iv.Upper)
	}
	// s = 10, n = 3, t(0.975, 2) = 4.302653
	wantMargin := 4.302653 * 10 / math.Sqrt(3)
	if math.Abs((iv.Upper-iv.Mean)-wantMargin) > 1e-4 {
		t.Errorf("margin = %v, want %v", iv.Upper-iv.Mean, wantMargin)
	}
}

func TestConfidenceTooFewSamples(t *testing.T) {
	for _, values := range [][]float64{nil, {42}} {
		if _, err := Confidence(values, 0.95); !errors.Is(err, ErrTooFewSamples) {
			t.Errorf("Confidence(%v) error = %v, want ErrTooFewSamples", values, err)
		}
	}
}

func TestConfidenceRejectsBadLevel(t *testing.T) {
	for _, conf := range []float64{0, 1, -0.5, 1.5} {
		if _, err := Confidence([]float64{1, 2}, conf); !errors.Is(err, ErrInvalidConfidence) {
			t.Errorf("conf %v: error = %v, want ErrInvalidConfidence", conf, err)
		}
	}
}

func TestConfidenceConstantSeries(t *testing.T) {
	iv, err := Confidence([]float64{5, 5, 5, 5}, 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Lower != 5 || iv.Upper != 5 || iv.Mean != 5 {
		t.Errorf("constant series gave %+v", iv)
	}
}

func TestWiderLevelGivesWiderInterval(t *testing.T) {
	values := []float64{3, 7, 8, 12, 15}
	narrow, _ := Confidence(values, 0.90)
	wide, _ := Confidence(values, 0.99)
	if !(wide.Lower < narrow.Lower && wide.Upper > narrow.Upper) {
		t.Errorf("99%% interval %+v is not wider than 90%% interval %+v", wide, narrow)
	}
}

func TestNonZeroPercent(t *testing.T) {
	if got := NonZeroPercent([]float64{0, 3, 0, 1}); got != 50 {
		t.Errorf("NonZeroPercent = %v, want 50", got)
	}
	if got := NonZeroPercent(nil); got != 0 {
		t.Errorf("NonZeroPercent(nil) = %v, want 0", got)
	}
}
