package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Analyze runs aggregation, statistics, classification and every summary
// over cleaned readings. It is deterministic apart from RunID and
// GeneratedAt. No readings yields ErrInsufficientData.
func Analyze(readings []Reading, cfg AnalysisConfig) (Analysis, error) {
	if err := ValidatePercentile(cfg.Percentile); err != nil {
		return Analysis{}, err
	}

	hourly := AggregateHourly(readings)
	if len(hourly) == 0 {
		return Analysis{}, fmt.Errorf("analyze: %w", ErrInsufficientData)
	}

	stats, err := Describe(Concentrations(hourly))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze: %w", err)
	}

	classified, err := Classify(hourly, cfg.Percentile)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze: %w", err)
	}
	records := classified.Records

	coverage := MeasureCoverage(records)
	coverage.Readings = len(readings)

	a := Analysis{
		RunID:       uuid.New(),
		GeneratedAt: clock.Now().UTC(),
		Config:      cfg,
		Coverage:    coverage,
		Stats:       stats,
		Threshold:   classified.Threshold,
		Records:     records,
		Extremes:    ExtremeEvents(records),
		ByHour:      SummarizeByHour(records),
		ByMonth:     SummarizeByMonth(records),
		MonthClass:  CountMonthClasses(records),
		ByWeekday:   SummarizeByWeekday(records),
		Daily:       SummarizeDaily(records, cfg.DailyGuideline),
	}
	a.TopExtremeMonths = TopExtremeBy(records, func(r HourlyRecord) int { return r.Month }, cfg.TopN)
	a.TopExtremeHours = TopExtremeBy(records, func(r HourlyRecord) int { return r.HourOfDay }, cfg.TopN)
	a.Guidelines = CompareGuidelines(stats, a.Daily, records, cfg.AnnualGuideline, cfg.DailyGuideline)
	a.Peaks = FindPeaks(a.ByHour, a.ByMonth)
	return a, nil
}

// AnalyzeRows normalizes raw rows and analyzes the result, recording row
// counts and drop reasons in Coverage.
func AnalyzeRows(table RawTable, mapping ColumnMapping, cfg AnalysisConfig) (Analysis, error) {
	rows := table.Rows
	norm, err := Normalize(table.Headers, rows, mapping)
	if err != nil {
		return Analysis{}, fmt.Errorf("normalize: %w", err)
	}
	a, err := Analyze(norm.Readings, cfg)
	if err != nil {
		return Analysis{}, err
	}
	a.Coverage = a.Coverage.WithNormalization(len(rows), norm)
	return a, nil
}
