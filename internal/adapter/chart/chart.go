// Package chart renders the analysis figures as PNG files.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// Figure file names, relative to the figures directory.
const (
	TimeSeriesFile   = "timeseries.png"
	DiurnalFile      = "diurnal.png"
	MonthlyFile      = "monthly.png"
	MonthClassesFile = "monthly_classes.png"
	DistributionFile = "distribution.png"
	histogramBins    = 40
	figureWidth      = 10 * vg.Inch
	figureHeight     = 5 * vg.Inch
)

var (
	seriesColor    = color.RGBA{R: 70, G: 110, B: 170, A: 255}
	extremeColor   = color.RGBA{R: 200, G: 50, B: 50, A: 255}
	thresholdColor = color.RGBA{R: 200, G: 50, B: 50, A: 255}
	normalColor    = color.RGBA{R: 150, G: 170, B: 200, A: 255}
)

// Renderer draws every figure into a directory. It implements pipeline.Loader.
type Renderer struct {
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing to dir.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, logger: logger}
}

func (r *Renderer) Name() string { return "charts" }

// Load renders all figures, stopping at the first failure.
func (r *Renderer) Load(ctx context.Context, a domain.Analysis) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create figures dir: %w", err)
	}

	figures := []struct {
		name  string
		build func(domain.Analysis) (*plot.Plot, error)
	}{
		{TimeSeriesFile, TimeSeries},
		{DiurnalFile, Diurnal},
		{MonthlyFile, Monthly},
		{MonthClassesFile, MonthClasses},
		{DistributionFile, Distribution},
	}
	for _, f := range figures {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := f.build(a)
		if err != nil {
			return fmt.Errorf("build %s: %w", f.name, err)
		}
		path := filepath.Join(r.dir, f.name)
		if err := p.Save(figureWidth, figureHeight, path); err != nil {
			return fmt.Errorf("save %s: %w", f.name, err)
		}
	}
	r.logger.Info("charts rendered", "dir", r.dir, "figures", len(figures))
	return nil
}

// TimeSeries plots the hourly series with Extreme hours highlighted and the threshold line.
func TimeSeries(a domain.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Hourly PM2.5 concentration"
	p.X.Label.Text = "Date (UTC)"
	p.Y.Label.Text = "PM2.5 (ug/m3)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	series := make(plotter.XYs, len(a.Records))
	var extremes plotter.XYs
	for i, r := range a.Records {
		x := float64(r.Hour.Unix())
		series[i] = plotter.XY{X: x, Y: r.Concentration}
		if r.IsExtreme() {
			extremes = append(extremes, plotter.XY{X: x, Y: r.Concentration})
		}
	}

	line, err := plotter.NewLine(series)
	if err != nil {
		return nil, err
	}
	line.Color = seriesColor
	line.Width = vg.Points(0.5)
	p.Add(line)
	p.Legend.Add("hourly", line)

	if len(extremes) > 0 {
		pts, err := plotter.NewScatter(extremes)
		if err != nil {
			return nil, err
		}
		pts.Color = extremeColor
		pts.Radius = vg.Points(1.5)
		p.Add(pts)
		p.Legend.Add("extreme", pts)
	}

	threshold := thresholdLine(a.Threshold)
	p.Add(threshold)
	p.Legend.Add(fmt.Sprintf("P%g threshold (%.1f)", 100*a.Config.Percentile, a.Threshold), threshold)
	p.Legend.Top = true
	return p, nil
}

// Diurnal plots the mean concentration by hour of day with +-1 standard error.
func Diurnal(a domain.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Diurnal pattern"
	p.X.Label.Text = "Hour of day (UTC)"
	p.Y.Label.Text = "Mean PM2.5 (ug/m3)"
	p.X.Min, p.X.Max = 0, 23
	p.Add(plotter.NewGrid())

	mean := make(plotter.XYs, len(a.ByHour))
	upper := make(plotter.XYs, 0, len(a.ByHour))
	lower := make(plotter.XYs, 0, len(a.ByHour))
	for i, h := range a.ByHour {
		mean[i] = plotter.XY{X: float64(h.Hour), Y: h.Mean}
		if h.Count > 1 {
			upper = append(upper, plotter.XY{X: float64(h.Hour), Y: h.Mean + h.StdErr})
			lower = append(lower, plotter.XY{X: float64(h.Hour), Y: h.Mean - h.StdErr})
		}
	}

	line, points, err := plotter.NewLinePoints(mean)
	if err != nil {
		return nil, err
	}
	line.Color = seriesColor
	points.Color = seriesColor
	p.Add(line, points)
	p.Legend.Add("mean", line, points)

	for _, band := range []plotter.XYs{upper, lower} {
		if len(band) < 2 {
			continue
		}
		l, err := plotter.NewLine(band)
		if err != nil {
			return nil, err
		}
		l.Color = normalColor
		l.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(l)
	}
	return p, nil
}

// Monthly draws a bar per month present with its mean concentration.
func Monthly(a domain.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Monthly mean PM2.5"
	p.Y.Label.Text = "Mean PM2.5 (ug/m3)"

	values := make(plotter.Values, len(a.ByMonth))
	names := make([]string, len(a.ByMonth))
	for i, m := range a.ByMonth {
		values[i] = m.Mean
		names[i] = domain.MonthAbbrev(m.Month)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = seriesColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	p.Add(thresholdLine(a.Guidelines.AnnualGuideline))
	return p, nil
}

// MonthClasses stacks Extreme hours on Normal hours per month.
func MonthClasses(a domain.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Hours by classification and month"
	p.Y.Label.Text = "Hours"

	normal := make(plotter.Values, len(a.MonthClass))
	extreme := make(plotter.Values, len(a.MonthClass))
	names := make([]string, len(a.MonthClass))
	for i, m := range a.MonthClass {
		normal[i] = float64(m.Normal)
		extreme[i] = float64(m.Extreme)
		names[i] = domain.MonthAbbrev(m.Month)
	}

	w := vg.Points(20)
	normalBars, err := plotter.NewBarChart(normal, w)
	if err != nil {
		return nil, err
	}
	normalBars.Color = normalColor
	normalBars.LineStyle.Width = 0

	extremeBars, err := plotter.NewBarChart(extreme, w)
	if err != nil {
		return nil, err
	}
	extremeBars.Color = extremeColor
	extremeBars.LineStyle.Width = 0
	extremeBars.StackOn(normalBars)

	p.Add(normalBars, extremeBars)
	p.Legend.Add(string(domain.Normal), normalBars)
	p.Legend.Add(string(domain.Extreme), extremeBars)
	p.Legend.Top = true
	p.NominalX(names...)
	return p, nil
}

// Distribution is a histogram of hourly concentrations with the threshold marked.
func Distribution(a domain.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Distribution of hourly PM2.5"
	p.X.Label.Text = "PM2.5 (ug/m3)"
	p.Y.Label.Text = "Hours"

	values := plotter.Values(domain.Concentrations(a.Records))
	bins := histogramBins
	if len(values) < bins {
		bins = max(1, len(values))
	}
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = normalColor
	p.Add(h)

	marker, err := verticalLine(a.Threshold, 0, maxBinCount(h))
	if err != nil {
		return nil, err
	}
	p.Add(marker)
	p.Legend.Add(fmt.Sprintf("threshold %.1f", a.Threshold), marker)
	p.Legend.Top = true
	return p, nil
}

func thresholdLine(y float64) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Color = thresholdColor
	f.Width = vg.Points(1)
	f.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return f
}

func verticalLine(x, y0, y1 float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: y0}, {X: x, Y: y1}})
	if err != nil {
		return nil, err
	}
	l.Color = thresholdColor
	l.Width = vg.Points(1.5)
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return l, nil
}

func maxBinCount(h *plotter.Histogram) float64 {
	var m float64
	for _, b := range h.Bins {
		m = max(m, b.Weight)
	}
	return m
}
