package domain

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC) // a Monday

// hourlyReadings returns one reading per hour starting at testStart.
func hourlyReadings(values ...float64) []Reading {
	out := make([]Reading, len(values))
	for i, v := range values {
		out[i] = Reading{Timestamp: testStart.Add(time.Duration(i) * time.Hour), Concentration: v}
	}
	return out
}

func TestAggregateHourly_MeanOfSameHour(t *testing.T) {
	readings := []Reading{
		{Timestamp: testStart.Add(5 * time.Minute), Concentration: 10},
		{Timestamp: testStart.Add(55 * time.Minute), Concentration: 20},
	}

	records := AggregateHourly(readings)

	require.Len(t, records, 1)
	assert.Equal(t, 15.0, records[0].Concentration)
	assert.Equal(t, 2, records[0].Readings)
	assert.Equal(t, testStart, records[0].Hour)
}

func TestAggregateHourly_FloorsNotRounds(t *testing.T) {
	readings := []Reading{
		{Timestamp: testStart.Add(59*time.Minute + 59*time.Second), Concentration: 4},
		{Timestamp: testStart.Add(time.Hour), Concentration: 8},
	}

	records := AggregateHourly(readings)

	require.Len(t, records, 2)
	assert.Equal(t, testStart, records[0].Hour)
	assert.Equal(t, 4.0, records[0].Concentration)
	assert.Equal(t, testStart.Add(time.Hour), records[1].Hour)
}

func TestAggregateHourly_SortedUniqueNoGapFill(t *testing.T) {
	readings := []Reading{
		{Timestamp: testStart.Add(5*time.Hour + 30*time.Minute), Concentration: 3},
		{Timestamp: testStart.Add(1 * time.Hour), Concentration: 1},
		{Timestamp: testStart.Add(5*time.Hour + 10*time.Minute), Concentration: 5},
		{Timestamp: testStart.Add(3 * time.Hour), Concentration: 2},
	}

	records := AggregateHourly(readings)

	distinct := map[time.Time]bool{}
	for _, r := range readings {
		distinct[TruncateHour(r.Timestamp)] = true
	}
	require.Len(t, records, len(distinct))
	assert.True(t, sort.SliceIsSorted(records, func(i, j int) bool { return records[i].Hour.Before(records[j].Hour) }))
	assert.Equal(t, 4.0, records[2].Concentration)
}

func TestAggregateHourly_Empty(t *testing.T) {
	assert.Empty(t, AggregateHourly(nil))
}

func TestAggregateHourly_CalendarFields(t *testing.T) {
	ts := time.Date(2023, time.July, 16, 21, 45, 0, 0, time.FixedZone("UTC+5", 5*3600)) // 16:45 UTC, Sunday
	records := AggregateHourly([]Reading{{Timestamp: ts, Concentration: 9}})

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, time.Date(2023, time.July, 16, 16, 0, 0, 0, time.UTC), r.Hour)
	assert.Equal(t, 16, r.HourOfDay)
	assert.Equal(t, 7, r.Month)
	assert.Equal(t, Sunday, r.Weekday)
	assert.Equal(t, "2023-07-16", r.Date)
	assert.Equal(t, Unclassified, r.Classification)
}

func TestQuantile_Type7(t *testing.T) {
	values := []float64{100, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	tests := []struct {
		q        float64
		expected float64
	}{
		{0, 1},
		{0.25, 3.25},
		{0.5, 5.5},
		{0.75, 7.75},
		{0.95, 59.05},
		{1, 100},
	}
	for _, tt := range tests {
		got, err := Quantile(values, tt.q)
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, got, 1e-9, "q=%v", tt.q)
	}
}

func TestQuantile_Errors(t *testing.T) {
	_, err := Quantile(nil, 0.5)
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = Quantile([]float64{1}, 1.5)
	require.Error(t, err)

	got, err := Quantile([]float64{42}, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}

func TestDescribe(t *testing.T) {
	s, err := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	assert.Equal(t, 8, s.N)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 4.5, s.Median)
	assert.InDelta(t, 2.138089935, s.StdDev, 1e-9)
	assert.InDelta(t, 4.0, s.P25, 1e-9)
	assert.InDelta(t, 5.5, s.P75, 1e-9)
	assert.InDelta(t, 8.3, s.P95, 1e-9)
	assert.InDelta(t, 2.138089935/5, s.CV, 1e-9)
	assert.InDelta(t, 1.5, s.IQR(), 1e-9)
}

func TestDescribe_InsufficientData(t *testing.T) {
	_, err := Describe(nil)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestDescribe_SingleValue(t *testing.T) {
	s, err := Describe([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Mean)
	assert.Equal(t, 7.0, s.P95)
	assert.True(t, math.IsNaN(s.StdDev))
	assert.True(t, math.IsNaN(s.CV))
}

func TestDescribe_Constant(t *testing.T) {
	s, err := Describe([]float64{3, 3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 0.0, s.CV)
}

func TestClassify_ExampleScenario(t *testing.T) {
	records := AggregateHourly(hourlyReadings(1, 2, 3, 4, 5, 6, 7, 8, 9, 100))

	res, err := Classify(records, 0.95)
	require.NoError(t, err)

	assert.InDelta(t, 59.05, res.Threshold, 1e-9)
	var extremes []float64
	for _, r := range res.Records {
		if r.IsExtreme() {
			extremes = append(extremes, r.Concentration)
		} else {
			assert.Equal(t, Normal, r.Classification)
		}
	}
	assert.Equal(t, []float64{100}, extremes)
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	records := AggregateHourly(hourlyReadings(1, 2, 3))
	_, err := Classify(records, 0.95)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, Unclassified, r.Classification)
	}
}

func TestClassify_ConstantSeriesAllExtreme(t *testing.T) {
	records := AggregateHourly(hourlyReadings(12, 12, 12, 12, 12))

	res, err := Classify(records, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 12.0, res.Threshold)
	for _, r := range res.Records {
		assert.Equal(t, Extreme, r.Classification)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = float64((i * 37) % 101)
	}
	res, err := Classify(AggregateHourly(hourlyReadings(values...)), 0.9)
	require.NoError(t, err)

	for _, a := range res.Records {
		for _, b := range res.Records {
			if a.Concentration > b.Concentration && a.Classification == Normal {
				require.Equal(t, Normal, b.Classification)
			}
		}
	}

	extreme := 0
	for _, r := range res.Records {
		if r.Concentration >= res.Threshold {
			extreme++
			assert.Equal(t, Extreme, r.Classification)
		}
	}
	assert.LessOrEqual(t, float64(extreme)/float64(len(res.Records)), 0.1+0.02)
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(nil, 0.95)
	require.ErrorIs(t, err, ErrInsufficientData)

	for _, p := range []float64{0, 1, -0.1, 1.2, math.NaN()} {
		_, err := Classify(AggregateHourly(hourlyReadings(1, 2)), p)
		require.ErrorIs(t, err, ErrInvalidPercentile, "p=%v", p)
	}
}

func TestAnalyze_EmptyIsInsufficientData(t *testing.T) {
	_, err := Analyze(nil, DefaultAnalysisConfig())
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyze_Bundle(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	// 48 hours: two days, with day two hotter and one spike.
	values := make([]float64, 48)
	for i := range values {
		values[i] = 10 + float64(i%24)
		if i >= 24 {
			values[i] += 10
		}
	}
	values[30] = 200

	cfg := DefaultAnalysisConfig()
	cfg.TopN = 3
	a, err := Analyze(hourlyReadings(values...), cfg)
	require.NoError(t, err)

	assert.Equal(t, fixed, a.GeneratedAt)
	assert.NotEmpty(t, a.RunID.String())
	assert.Equal(t, 48, a.Coverage.Hours)
	assert.Equal(t, 2, a.Coverage.Days)
	assert.Equal(t, 48, a.Coverage.SpannedHours)
	assert.Equal(t, 1.0, a.Coverage.Completeness)
	assert.Len(t, a.Records, 48)
	assert.Len(t, a.ByHour, 24)
	assert.Len(t, a.ByMonth, 1)
	assert.Len(t, a.Daily, 2)

	require.NotEmpty(t, a.Extremes)
	assert.Equal(t, 200.0, a.Extremes[0].Concentration)
	for _, e := range a.Extremes {
		assert.GreaterOrEqual(t, e.Concentration, a.Threshold)
	}
	assert.Equal(t, a.Stats.P95, a.Threshold)
	assert.Equal(t, len(a.Extremes), a.MonthClass[0].Extreme)
	assert.Equal(t, 48-len(a.Extremes), a.MonthClass[0].Normal)
	assert.LessOrEqual(t, len(a.TopExtremeHours), 3)

	assert.Equal(t, 6, a.Peaks.PeakHour.Hour) // spike at hour 30 -> 06:00 on day two
	assert.Equal(t, 0, a.Peaks.LowestHour.Hour)

	assert.True(t, a.Guidelines.ExceedsAnnual)
	assert.Equal(t, 2, a.Guidelines.DaysAboveDaily)
	assert.Equal(t, 100.0, a.Guidelines.DaysAboveDailyPct)
}

func TestAnalyze_Idempotent(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(testStart))
	defer SetClock(nil)

	readings := hourlyReadings(5, 9, 1, 40, 3, 3, 8, 22, 17, 6, 11, 2)
	first, err := Analyze(readings, DefaultAnalysisConfig())
	require.NoError(t, err)
	second, err := Analyze(readings, DefaultAnalysisConfig())
	require.NoError(t, err)

	ignoreRunID := cmp.FilterPath(func(p cmp.Path) bool { return p.String() == "RunID" }, cmp.Ignore())
	if diff := cmp.Diff(first, second, ignoreRunID, cmp.Comparer(equalNaN)); diff != "" {
		t.Errorf("analysis differs between runs (-first +second):\n%s", diff)
	}
}

func equalNaN(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func TestAnalyzeRows_Coverage(t *testing.T) {
	headers := []string{"timestamp", "pm25"}
	rows := []RawRow{
		{"timestamp": "2023-01-02T00:05:00Z", "pm25": "10"},
		{"timestamp": "2023-01-02T00:35:00Z", "pm25": "20"},
		{"timestamp": "2023-01-02T03:00:00Z", "pm25": "null"},
		{"timestamp": "2023-01-02T03:00:00Z", "pm25": "30"},
		{"timestamp": "garbage", "pm25": "30"},
	}

	a, err := AnalyzeRows(RawTable{Headers: headers, Rows: rows}, NewColumnMapping("", ""), DefaultAnalysisConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, a.Coverage.RawRows)
	assert.Equal(t, 3, a.Coverage.Readings)
	assert.Equal(t, 2, a.Coverage.DroppedRows)
	assert.Equal(t, 2, a.Coverage.Hours)
	assert.Equal(t, 4, a.Coverage.SpannedHours)
	assert.Equal(t, 0.5, a.Coverage.Completeness)
	assert.Equal(t, 15.0, a.Records[0].Concentration)
}

func TestAnalyzeRows_AllDropped(t *testing.T) {
	rows := []RawRow{{"timestamp": "x", "value": "1"}}
	_, err := AnalyzeRows(RawTable{Headers: []string{"timestamp", "value"}, Rows: rows}, NewColumnMapping("", ""), DefaultAnalysisConfig())
	require.ErrorIs(t, err, ErrInsufficientData)
}
