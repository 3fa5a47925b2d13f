package domain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats is the descriptive summary of a concentration series.
// StdDev and CV are NaN when fewer than two values are present; CV is also
// NaN when the mean is zero.
type Stats struct {
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
	CV     float64 `json:"cv"`
}

// IQR is the interquartile range P75-P25.
func (s Stats) IQR() float64 { return s.P75 - s.P25 }

// Describe computes Stats over values. An empty input returns ErrInsufficientData.
func Describe(values []float64) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, fmt.Errorf("describe: %w", ErrInsufficientData)
	}
	sorted := sortedCopy(values)

	s := Stats{
		N:      len(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: quantileSorted(sorted, 0.5),
		P25:    quantileSorted(sorted, 0.25),
		P75:    quantileSorted(sorted, 0.75),
		P95:    quantileSorted(sorted, 0.95),
		StdDev: SampleStdDev(sorted),
	}
	s.CV = coefficientOfVariation(s.StdDev, s.Mean)
	return s, nil
}

// SampleStdDev is the n-1 standard deviation, NaN for fewer than two values.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

func coefficientOfVariation(stddev, mean float64) float64 {
	if math.IsNaN(stddev) || mean == 0 {
		return math.NaN()
	}
	return stddev / mean
}

// Quantile returns the type-7 quantile of values at q in [0, 1]: the linear
// interpolation between order statistics at 1-indexed position 1+q*(n-1).
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), fmt.Errorf("quantile: %w", ErrInsufficientData)
	}
	if math.IsNaN(q) || q < 0 || q > 1 {
		return math.NaN(), fmt.Errorf("quantile %v: out of range [0, 1]", q)
	}
	return quantileSorted(sortedCopy(values), q), nil
}

// quantileSorted assumes sorted is ascending and non-empty.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Concentrations extracts the concentration column in record order.
func Concentrations(records []HourlyRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Concentration
	}
	return out
}
