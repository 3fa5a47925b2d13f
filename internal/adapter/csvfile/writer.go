package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// Exported file names, relative to the output directory.
const (
	HourlyFile       = "pm25_hourly_processed.csv"
	ExtremeFile      = "extreme_events.csv"
	MonthlyFile      = "monthly_summary.csv"
	HourOfDayFile    = "hourly_summary.csv"
	DailyFile        = "daily_summary.csv"
	WeekdayFile      = "weekday_summary.csv"
	MonthClassesFile = "monthly_classification.csv"
)

// HourlyHeader is the column layout of the processed hourly and extreme tables.
var HourlyHeader = []string{"timestamp", "concentration", "readings", "hour", "month", "weekday", "date", "classification"}

// Exporter writes every analysis table to a directory. It implements pipeline.Loader.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

func (e *Exporter) Name() string { return "tables" }

// Load writes all tables, creating the directory if needed.
func (e *Exporter) Load(_ context.Context, a domain.Analysis) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{HourlyFile, func(w io.Writer) error { return WriteHourly(w, a.Records) }},
		{ExtremeFile, func(w io.Writer) error { return WriteHourly(w, a.Extremes) }},
		{MonthlyFile, func(w io.Writer) error { return WriteMonthly(w, a.ByMonth) }},
		{HourOfDayFile, func(w io.Writer) error { return WriteHourOfDay(w, a.ByHour) }},
		{DailyFile, func(w io.Writer) error { return WriteDaily(w, a.Daily) }},
		{WeekdayFile, func(w io.Writer) error { return WriteWeekday(w, a.ByWeekday) }},
		{MonthClassesFile, func(w io.Writer) error { return WriteMonthClasses(w, a.MonthClass) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(e.dir, f.name), f.write); err != nil {
			return err
		}
	}
	e.logger.Info("tables exported", "dir", e.dir, "files", len(files))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteHourly writes records in HourlyHeader layout.
func WriteHourly(w io.Writer, records []domain.HourlyRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Hour.Format(time.RFC3339),
			formatFloat(r.Concentration),
			strconv.Itoa(r.Readings),
			strconv.Itoa(r.HourOfDay),
			strconv.Itoa(r.Month),
			r.Weekday.String(),
			r.Date,
			string(r.Classification),
		})
	}
	return writeAll(w, HourlyHeader, rows)
}

// WriteMonthly writes the monthly summary.
func WriteMonthly(w io.Writer, rows []domain.MonthlySummary) error {
	out := make([][]string, 0, len(rows))
	for _, m := range rows {
		out = append(out, []string{
			strconv.Itoa(m.Month),
			domain.MonthName(m.Month),
			formatFloat(m.Mean),
			formatFloat(m.Median),
			formatFloat(m.StdDev),
			strconv.Itoa(m.Count),
		})
	}
	return writeAll(w, []string{"month", "month_name", "mean", "median", "std_dev", "count"}, out)
}

// WriteHourOfDay writes the diurnal summary.
func WriteHourOfDay(w io.Writer, rows []domain.HourOfDaySummary) error {
	out := make([][]string, 0, len(rows))
	for _, h := range rows {
		out = append(out, []string{
			strconv.Itoa(h.Hour),
			formatFloat(h.Mean),
			formatFloat(h.StdErr),
			strconv.Itoa(h.Count),
		})
	}
	return writeAll(w, []string{"hour", "mean", "std_err", "count"}, out)
}

// WriteDaily writes daily means with the guideline flag.
func WriteDaily(w io.Writer, rows []domain.DailySummary) error {
	out := make([][]string, 0, len(rows))
	for _, d := range rows {
		out = append(out, []string{
			d.Date,
			formatFloat(d.Mean),
			strconv.Itoa(d.Count),
			strconv.FormatBool(d.ExceedsDailyGuideline),
		})
	}
	return writeAll(w, []string{"date", "mean", "count", "exceeds_24h_guideline"}, out)
}

// WriteWeekday writes the weekly profile.
func WriteWeekday(w io.Writer, rows []domain.WeekdaySummary) error {
	out := make([][]string, 0, len(rows))
	for _, d := range rows {
		out = append(out, []string{
			d.Weekday.String(),
			formatFloat(d.Mean),
			formatFloat(d.StdErr),
			strconv.Itoa(d.Count),
		})
	}
	return writeAll(w, []string{"weekday", "mean", "std_err", "count"}, out)
}

// WriteMonthClasses writes the month x classification counts.
func WriteMonthClasses(w io.Writer, rows []domain.MonthClassCount) error {
	out := make([][]string, 0, len(rows))
	for _, m := range rows {
		out = append(out, []string{
			strconv.Itoa(m.Month),
			strconv.Itoa(m.Extreme),
			strconv.Itoa(m.Normal),
		})
	}
	return writeAll(w, []string{"month", "extreme", "normal"}, out)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// formatFloat writes the shortest exact representation; NaN becomes "NA".
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
