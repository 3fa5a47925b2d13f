package domain

import (
	"math"
	"sort"

	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/stat"
)

// HourOfDaySummary is the diurnal profile row for one hour of the day.
type HourOfDaySummary struct {
	Hour   int     `json:"hour"`
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
	Count  int     `json:"count"`
}

// MonthlySummary aggregates all hours falling in one calendar month.
type MonthlySummary struct {
	Month  int     `json:"month"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// MonthClassCount splits a month's hours by classification.
type MonthClassCount struct {
	Month   int `json:"month"`
	Extreme int `json:"extreme"`
	Normal  int `json:"normal"`
}

// WeekdaySummary is the weekly profile row for one weekday.
type WeekdaySummary struct {
	Weekday Weekday `json:"weekday"`
	Mean    float64 `json:"mean"`
	StdErr  float64 `json:"std_err"`
	Count   int     `json:"count"`
}

// DailySummary is the mean of one calendar date's hours.
type DailySummary struct {
	Date                  string  `json:"date"`
	Mean                  float64 `json:"mean"`
	Count                 int     `json:"count"`
	ExceedsDailyGuideline bool    `json:"exceeds_daily_guideline"`
}

// GroupCount is one row of a ranked count view.
type GroupCount struct {
	Key   int `json:"key"`
	Count int `json:"count"`
}

// groupBy collects concentrations per integer key.
func groupBy(records []HourlyRecord, key func(HourlyRecord) int) (map[int][]float64, []int) {
	groups := make(map[int][]float64)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r.Concentration)
	}
	keys := maps.Keys(groups)
	sort.Ints(keys)
	return groups, keys
}

// StandardError is stddev/sqrt(n); NaN for fewer than two values.
func StandardError(values []float64) float64 {
	sd := SampleStdDev(values)
	if math.IsNaN(sd) {
		return sd
	}
	return sd / math.Sqrt(float64(len(values)))
}

// SummarizeByHour groups by hour of day (0-23). Hours absent from the data
// are omitted.
func SummarizeByHour(records []HourlyRecord) []HourOfDaySummary {
	groups, keys := groupBy(records, func(r HourlyRecord) int { return r.HourOfDay })
	out := make([]HourOfDaySummary, 0, len(keys))
	for _, h := range keys {
		vals := groups[h]
		out = append(out, HourOfDaySummary{
			Hour:   h,
			Mean:   stat.Mean(vals, nil),
			StdErr: StandardError(vals),
			Count:  len(vals),
		})
	}
	return out
}

// SummarizeByMonth groups by calendar month (1-12) across all years present.
func SummarizeByMonth(records []HourlyRecord) []MonthlySummary {
	groups, keys := groupBy(records, func(r HourlyRecord) int { return r.Month })
	out := make([]MonthlySummary, 0, len(keys))
	for _, m := range keys {
		sorted := sortedCopy(groups[m])
		out = append(out, MonthlySummary{
			Month:  m,
			Mean:   stat.Mean(sorted, nil),
			Median: quantileSorted(sorted, 0.5),
			StdDev: SampleStdDev(sorted),
			Count:  len(sorted),
		})
	}
	return out
}

// CountMonthClasses crosses month with classification.
func CountMonthClasses(records []HourlyRecord) []MonthClassCount {
	counts := make(map[int]*MonthClassCount)
	for _, r := range records {
		c, ok := counts[r.Month]
		if !ok {
			c = &MonthClassCount{Month: r.Month}
			counts[r.Month] = c
		}
		if r.IsExtreme() {
			c.Extreme++
		} else {
			c.Normal++
		}
	}
	keys := maps.Keys(counts)
	sort.Ints(keys)
	out := make([]MonthClassCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, *counts[k])
	}
	return out
}

// SummarizeByWeekday groups by Monday-first weekday.
func SummarizeByWeekday(records []HourlyRecord) []WeekdaySummary {
	groups, keys := groupBy(records, func(r HourlyRecord) int { return int(r.Weekday) })
	out := make([]WeekdaySummary, 0, len(keys))
	for _, d := range keys {
		vals := groups[d]
		out = append(out, WeekdaySummary{
			Weekday: Weekday(d),
			Mean:    stat.Mean(vals, nil),
			StdErr:  StandardError(vals),
			Count:   len(vals),
		})
	}
	return out
}

// SummarizeDaily averages the available hours of each calendar date and
// flags dates whose mean is above dailyGuideline.
func SummarizeDaily(records []HourlyRecord, dailyGuideline float64) []DailySummary {
	groups := make(map[string][]float64)
	for _, r := range records {
		groups[r.Date] = append(groups[r.Date], r.Concentration)
	}
	dates := maps.Keys(groups)
	sort.Strings(dates)

	out := make([]DailySummary, 0, len(dates))
	for _, d := range dates {
		mean := stat.Mean(groups[d], nil)
		out = append(out, DailySummary{
			Date:                  d,
			Mean:                  mean,
			Count:                 len(groups[d]),
			ExceedsDailyGuideline: mean > dailyGuideline,
		})
	}
	return out
}

// ExtremeEvents filters to Extreme records and orders them by descending
// concentration. Ties keep their input (chronological) order.
func ExtremeEvents(records []HourlyRecord) []HourlyRecord {
	out := make([]HourlyRecord, 0)
	for _, r := range records {
		if r.IsExtreme() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Concentration > out[j].Concentration
	})
	return out
}

// TopExtremeBy counts Extreme records per key and returns the n largest
// counts, descending, ties broken by ascending key. n <= 0 returns all.
func TopExtremeBy(records []HourlyRecord, key func(HourlyRecord) int, n int) []GroupCount {
	counts := make(map[int]int)
	for _, r := range records {
		if r.IsExtreme() {
			counts[key(r)]++
		}
	}
	out := make([]GroupCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, GroupCount{Key: k, Count: c})
	}
	RankCounts(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RankCounts sorts in place by descending count, then ascending key.
func RankCounts(rows []GroupCount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
}

// TopN returns at most n leading elements; n <= 0 returns all.
func TopN[T any](rows []T, n int) []T {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}
