package csvfile

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

const sampleFile = "testdata/openaq_sample.csv"

func TestReader_Extract(t *testing.T) {
	table, err := NewReader(sampleFile, slog.Default()).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"location_id", "datetimeUtc", "parameter", "value", "unit"}, table.Headers)
	require.Len(t, table.Rows, 9)
	assert.Equal(t, "2023-01-02T00:05:00Z", table.Rows[0]["datetimeUtc"])
	assert.Equal(t, "10", table.Rows[0]["value"])
	assert.Empty(t, table.Rows[8]["value"], "short row keeps missing fields empty")
}

func TestReader_Extract_MissingFile(t *testing.T) {
	_, err := NewReader("testdata/nope.csv", slog.Default()).Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open source")
}

func TestReadTable_EmptyAndBOM(t *testing.T) {
	_, err := ReadTable(context.Background(), strings.NewReader(""))
	require.Error(t, err)

	table, err := ReadTable(context.Background(), strings.NewReader("\ufefftimestamp,pm25\n2023-01-01T00:00:00Z,3\n"))
	require.NoError(t, err)
	assert.Equal(t, "timestamp", table.Headers[0])
	assert.Equal(t, "3", table.Rows[0]["pm25"])
}

func TestReadTable_DuplicateHeaderKeepsFirstColumn(t *testing.T) {
	src := "timestamp,value,value\n2023-01-01T00:00:00Z,3,99\n2023-01-01T01:00:00Z,4\n"
	table, err := ReadTable(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "3", table.Rows[0]["value"])
	assert.Equal(t, "4", table.Rows[1]["value"])

	norm, err := domain.Normalize(table.Headers, table.Rows, domain.NewColumnMapping("", ""))
	require.NoError(t, err)
	require.Len(t, norm.Readings, 2)
	assert.Equal(t, 3.0, norm.Readings[0].Concentration)
}

func TestSampleFile_Analysis(t *testing.T) {
	table, err := NewReader(sampleFile, slog.Default()).Extract(context.Background())
	require.NoError(t, err)

	a, err := domain.AnalyzeRows(table, domain.NewColumnMapping("", ""), domain.DefaultAnalysisConfig())
	require.NoError(t, err)

	assert.Equal(t, 9, a.Coverage.RawRows)
	assert.Equal(t, 4, a.Coverage.DroppedRows)
	// hours 00 (mean 15), 02, 04 (and 05+01:00 -> 04 UTC), no 01/03/06
	require.Len(t, a.Records, 3)
	assert.Equal(t, 15.0, a.Records[0].Concentration)
	assert.Equal(t, 49.5, a.Records[2].Concentration)
}

func sampleRecords() []domain.HourlyRecord {
	start := time.Date(2023, time.March, 5, 22, 0, 0, 0, time.UTC)
	values := []float64{3.25, 41.0, 0.1 + 0.2, 41.0, 7}
	records := make([]domain.HourlyRecord, len(values))
	for i, v := range values {
		records[i] = domain.NewHourlyRecord(start.Add(time.Duration(i)*time.Hour), v, domain.Normal)
	}
	records[1].Classification = domain.Extreme
	records[3].Classification = domain.Extreme
	records[3].Readings = 4
	return records
}

func TestHourly_RoundTripReproducesExtremes(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	require.NoError(t, WriteHourly(&buf, records))

	back, err := ReadHourlyRecords(&buf)
	require.NoError(t, err)

	assert.Equal(t, records, back)
	assert.Equal(t, domain.ExtremeEvents(records), domain.ExtremeEvents(back))
}

func TestReadHourlyRecords_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing column", "timestamp,concentration\n", "missing column: readings"},
		{"bad label", strings.Join(HourlyHeader, ",") + "\n2023-01-01T00:00:00Z,1,1,0,1,Sunday,2023-01-01,Severe\n", "classification"},
		{"bad date", strings.Join(HourlyHeader, ",") + "\n2023-01-01T00:00:00Z,1,1,0,1,Sunday,2023-01-02,Normal\n", "date"},
		{"bad weekday", strings.Join(HourlyHeader, ",") + "\n2023-01-01T00:00:00Z,1,1,0,1,Monday,2023-01-01,Normal\n", "weekday"},
		{"bad number", strings.Join(HourlyHeader, ",") + "\n2023-01-01T00:00:00Z,x,1,0,1,Sunday,2023-01-01,Normal\n", "concentration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHourlyRecords(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteHourOfDay_NaNAsNA(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHourOfDay(&buf, []domain.HourOfDaySummary{{Hour: 3, Mean: 12, StdErr: math.NaN(), Count: 1}}))
	assert.Equal(t, "hour,mean,std_err,count\n3,12,NA,1\n", buf.String())
}

func TestExporter_Load(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	records := sampleRecords()
	a := domain.Analysis{
		Records:  records,
		Extremes: domain.ExtremeEvents(records),
		ByMonth:  domain.SummarizeByMonth(records),
		ByHour:   domain.SummarizeByHour(records),
		Daily:    domain.SummarizeDaily(records, 15),
	}

	require.NoError(t, NewExporter(dir, slog.Default()).Load(context.Background(), a))

	for _, name := range []string{HourlyFile, ExtremeFile, MonthlyFile, HourOfDayFile, DailyFile, WeekdayFile, MonthClassesFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	extremes, err := ReadHourlyFile(filepath.Join(dir, ExtremeFile))
	require.NoError(t, err)
	require.Len(t, extremes, 2)
	assert.True(t, extremes[0].Hour.Before(extremes[1].Hour), "ties keep chronological order")

	monthly, err := os.ReadFile(filepath.Join(dir, MonthlyFile))
	require.NoError(t, err)
	assert.Contains(t, string(monthly), "3,March,")
}
