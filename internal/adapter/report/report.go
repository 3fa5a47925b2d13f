// Package report renders the human-readable analysis summary.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// FileName is the report's name inside the output directory.
const FileName = "analysis_report.txt"

// Writer renders the report to a file and, optionally, a console stream.
// It implements pipeline.Loader.
type Writer struct {
	dir     string
	console io.Writer
	logger  *slog.Logger
}

// NewWriter creates a report Writer. console may be nil.
func NewWriter(dir string, console io.Writer, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, console: console, logger: logger}
}

func (w *Writer) Name() string { return "report" }

// Load renders the report once and writes it to every destination.
func (w *Writer) Load(_ context.Context, a domain.Analysis) error {
	var buf bytes.Buffer
	if err := Render(&buf, a); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if w.console != nil {
		if _, err := w.console.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}
	w.logger.Info("report written", "path", path)
	return nil
}

const rule = "================================================================"

// Render writes the full text report for a.
func Render(out io.Writer, a domain.Analysis) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	p := func(format string, args ...any) { fmt.Fprintf(tw, format+"\n", args...) }
	section := func(title string) {
		p("")
		p("%s", strings.ToUpper(title))
		p("%s", strings.Repeat("-", len(title)))
	}

	p("%s", rule)
	p("PM2.5 EXTREME POLLUTION ANALYSIS")
	p("%s", rule)
	p("Run ID:\t%s", a.RunID)
	p("Generated:\t%s", a.GeneratedAt.Format(time.RFC3339))

	c := a.Coverage
	section("Dataset coverage")
	p("Period:\t%s to %s", c.FirstHour.Format("2006-01-02 15:04"), c.LastHour.Format("2006-01-02 15:04"))
	p("Source rows:\t%d", c.RawRows)
	p("Dropped rows:\t%d%s", c.DroppedRows, formatReasons(c.DropReasons))
	p("Valid readings:\t%d", c.Readings)
	p("Hourly records:\t%d of %d spanned (%.1f%% complete)", c.Hours, c.SpannedHours, 100*c.Completeness)
	p("Days covered:\t%d", c.Days)

	s := a.Stats
	section("Descriptive statistics (ug/m3)")
	p("Mean:\t%s", num(s.Mean))
	p("Median:\t%s", num(s.Median))
	p("Std. deviation:\t%s", num(s.StdDev))
	p("Minimum:\t%s", num(s.Min))
	p("Maximum:\t%s", num(s.Max))
	p("25th percentile:\t%s", num(s.P25))
	p("75th percentile:\t%s", num(s.P75))
	p("95th percentile:\t%s", num(s.P95))
	p("Coeff. of variation:\t%s", num(s.CV))

	section("Extreme events")
	p("Threshold (P%s):\t%s ug/m3", percentileLabel(a.Config.Percentile), num(a.Threshold))
	p("Extreme hours:\t%d (%.2f%%)", a.ExtremeCount(), 100*a.ExtremeShare())
	p("Normal hours:\t%d", len(a.Records)-a.ExtremeCount())
	if len(a.Extremes) > 0 {
		p("Highest hour:\t%s at %s", num(a.Extremes[0].Concentration), a.Extremes[0].Hour.Format("2006-01-02 15:04"))
	}

	pk := a.Peaks
	section("Temporal patterns")
	p("Peak hour of day:\t%02d:00 (mean %s)", pk.PeakHour.Hour, num(pk.PeakHour.Mean))
	p("Lowest hour of day:\t%02d:00 (mean %s)", pk.LowestHour.Hour, num(pk.LowestHour.Mean))
	p("Peak month:\t%s (mean %s)", domain.MonthName(pk.PeakMonth.Month), num(pk.PeakMonth.Mean))
	p("Lowest month:\t%s (mean %s)", domain.MonthName(pk.LowestMonth.Month), num(pk.LowestMonth.Mean))
	if len(a.TopExtremeMonths) > 0 {
		p("Months by extreme hours:\t%s", formatCounts(a.TopExtremeMonths, domain.MonthAbbrev))
	}
	if len(a.TopExtremeHours) > 0 {
		p("Hours by extreme hours:\t%s", formatCounts(a.TopExtremeHours, func(h int) string { return fmt.Sprintf("%02d", h) }))
	}

	g := a.Guidelines
	section("Guideline comparison")
	p("Annual guideline:\t%s ug/m3", num(g.AnnualGuideline))
	p("Overall mean:\t%s ug/m3 (%.1fx guideline, %s)", num(g.OverallMean), g.AnnualRatio, exceeds(g.ExceedsAnnual))
	p("24-hour guideline:\t%s ug/m3", num(g.DailyGuideline))
	p("Days above 24-hour:\t%d of %d (%.1f%%)", g.DaysAboveDaily, g.Days, g.DaysAboveDailyPct)
	p("Hours above 24-hour:\t%d", g.HoursAboveDaily)

	top := domain.TopN(a.Extremes, a.Config.TopN)
	if len(top) > 0 {
		section(fmt.Sprintf("Top %d extreme hours", len(top)))
		p("Rank\tTimestamp (UTC)\tug/m3\tWeekday")
		for i, e := range top {
			p("%d\t%s\t%s\t%s", i+1, e.Hour.Format("2006-01-02 15:04"), num(e.Concentration), e.Weekday)
		}
	}
	p("%s", rule)

	return tw.Flush()
}

// num formats a measurement to two decimals; NaN is reported as n/a.
func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// percentileLabel renders 0.95 as "95" and 0.975 as "97.5".
func percentileLabel(q float64) string {
	return strconv.FormatFloat(math.Round(q*1e4)/100, 'f', -1, 64)
}

func exceeds(b bool) string {
	if b {
		return "exceeds"
	}
	return "within"
}

func formatReasons(reasons map[string]int) string {
	if len(reasons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(reasons))
	for _, key := range []string{domain.DropNullValue, domain.DropBadValue, domain.DropBadTimestamp} {
		if n := reasons[key]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", key, n))
		}
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func formatCounts(rows []domain.GroupCount, label func(int) string) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("%s=%d", label(r.Key), r.Count)
	}
	return strings.Join(parts, ", ")
}
