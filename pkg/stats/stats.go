// Package stats computes the per-metric summaries of a trial sequence.
package stats

import (
	"errors"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

const DefaultConfidence = 0.95

var (
	ErrTooFewSamples        = errors.New("at least two samples are required for a confidence interval")
	ErrInvalidConfidence    = errors.New("confidence level must be in (0,1)")
	ErrNonFiniteObservation = errors.New("non-finite observation")
)

func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrTooFewSamples
	}
	return mstats.Mean(values)
}

// StdDev is the sample (n-1) standard deviation.
func StdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, ErrTooFewSamples
	}
	return mstats.StandardDeviationSample(values)
}

// TQuantile returns the p-quantile of Student's t with df degrees of freedom.
func TQuantile(p float64, df int) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(p)
}

// Confidence returns mean ± t_{(1+conf)/2, n-1} · s/√n.
func Confidence(values []float64, conf float64) (sweeptypes.Interval, error) {
	if conf <= 0 || conf >= 1 {
		return sweeptypes.Interval{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, conf)
	}
	n := len(values)
	if n < 2 {
		return sweeptypes.Interval{}, fmt.Errorf("%w: got %d", ErrTooFewSamples, n)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return sweeptypes.Interval{}, fmt.Errorf("%w: %v", ErrNonFiniteObservation, v)
		}
	}

	mean, err := Mean(values)
	if err != nil {
		return sweeptypes.Interval{}, err
	}
	sd, err := StdDev(values)
	if err != nil {
		return sweeptypes.Interval{}, err
	}

	margin := TQuantile((1+conf)/2, n-1) * sd / math.Sqrt(float64(n))
	return sweeptypes.Interval{Mean: mean, Lower: mean - margin, Upper: mean + margin}, nil
}

// NonZeroPercent is the share of values different from zero, in percent.
func NonZeroPercent(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	hits := 0
	for _, v := range values {
		if v > 0 {
			hits++
		}
	}
	return float64(hits) * 100 / float64(len(values))
}

// Scale multiplies every bound by k.
func Scale(iv sweeptypes.Interval, k float64) sweeptypes.Interval {
	return sweeptypes.Interval{Mean: iv.Mean * k, Lower: iv.Lower * k, Upper: iv.Upper * k}
}
