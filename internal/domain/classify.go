package domain

import (
	"fmt"
	"math"
)

// ClassifyResult carries the classified copy of the series and the threshold
// every decision in it was made against.
type ClassifyResult struct {
	Records   []HourlyRecord
	Threshold float64
}

// Classify computes the percentile threshold over all records and labels
// each one: Extreme when concentration >= threshold, Normal otherwise.
// The input slice is not modified.
func Classify(records []HourlyRecord, percentile float64) (ClassifyResult, error) {
	if err := ValidatePercentile(percentile); err != nil {
		return ClassifyResult{}, err
	}
	if len(records) == 0 {
		return ClassifyResult{}, fmt.Errorf("classify: %w", ErrInsufficientData)
	}

	threshold, err := Quantile(Concentrations(records), percentile)
	if err != nil {
		return ClassifyResult{}, fmt.Errorf("classify: %w", err)
	}

	out := make([]HourlyRecord, len(records))
	for i, r := range records {
		r.Classification = classifyValue(r.Concentration, threshold)
		out[i] = r
	}
	return ClassifyResult{Records: out, Threshold: threshold}, nil
}

func classifyValue(concentration, threshold float64) Classification {
	if concentration >= threshold {
		return Extreme
	}
	return Normal
}

// ValidatePercentile rejects values outside the open interval (0, 1).
func ValidatePercentile(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidPercentile, p)
	}
	return nil
}
