// Command genmock writes a deterministic synthetic PM2.5 CSV in the OpenAQ
// export layout. The series carries a diurnal and seasonal cycle, pollution
// episodes, sub-hourly duplicates and a sprinkling of bad rows, so every
// cleaning and classification path is exercised. It runs the result through
// the domain package and prints the figures test assertions depend on.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/pm25_synthetic.csv -days 365 -seed 42
//
// The file contains -999 missing-value sentinels; analyze it with
// DROP_NEGATIVE=true.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/airquality-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/airquality-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

var header = []string{"location_id", "datetimeUtc", "parameter", "value", "unit"}

const locationID = "2178"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the synthetic CSV")
	days := flag.Int("days", 365, "number of days to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *days < 1 {
		return fmt.Errorf("-days must be at least 1, got %d", *days)
	}

	rows := generate(*days, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if err := writeFile(*out, buf.Bytes()); err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", len(rows), *out)

	// Fixed clock so GeneratedAt in printed output is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, *days)))
	defer domain.SetClock(nil)

	table, err := csvfile.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("re-read generated CSV: %w", err)
	}
	mapping := domain.NewColumnMapping("", "")
	mapping.DropNegative = true
	a, err := domain.AnalyzeRows(table, mapping, domain.DefaultAnalysisConfig())
	if err != nil {
		return fmt.Errorf("analyze generated CSV: %w", err)
	}
	printStats(a)
	return nil
}

// generate produces one reading per 20 minutes with a diurnal double peak,
// a winter maximum and multiplicative noise. Roughly one day in twenty hosts
// a multi-hour episode.
func generate(days int, rng *rand.Rand) [][]string {
	var rows [][]string
	episodeLeft := 0
	episodeBoost := 1.0

	for h := 0; h < days*24; h++ {
		hour := baseDate.Add(time.Duration(h) * time.Hour)

		if episodeLeft == 0 && rng.Float64() < 0.05/24*4 {
			episodeLeft = 6 + rng.IntN(30)
			episodeBoost = 2 + 3*rng.Float64()
		}
		boost := 1.0
		if episodeLeft > 0 {
			boost = episodeBoost
			episodeLeft--
		}

		for _, minute := range []int{0, 20, 40} {
			ts := hour.Add(time.Duration(minute) * time.Minute)
			rows = append(rows, row(ts, value(ts, boost, rng), rng))
		}
	}
	return rows
}

func value(ts time.Time, boost float64, rng *rand.Rand) float64 {
	doy := float64(ts.YearDay())
	seasonal := 1 + 0.5*math.Cos(2*math.Pi*(doy-15)/365)
	hod := float64(ts.Hour()) + float64(ts.Minute())/60
	diurnal := 1 + 0.35*math.Exp(-math.Pow(hod-8, 2)/4) + 0.45*math.Exp(-math.Pow(hod-21, 2)/6)
	noise := math.Exp(rng.NormFloat64() * 0.3)
	return 6 * seasonal * diurnal * noise * boost
}

// row formats one reading, occasionally replacing it with the kinds of defects
// found in real exports.
func row(ts time.Time, v float64, rng *rand.Rand) []string {
	stamp := ts.Format(time.RFC3339)
	val := strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)

	switch p := rng.Float64(); {
	case p < 0.004:
		val = ""
	case p < 0.006:
		val = "NaN"
	case p < 0.007:
		val = "-999"
	case p < 0.008:
		stamp = "not-a-date"
	case p < 0.010:
		stamp = ts.Format("2006-01-02 15:04:05")
	}
	return []string{locationID, stamp, "pm25", val, "µg/m³"}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(a domain.Analysis) {
	c := a.Coverage
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: raw=%d, readings=%d, dropped=%d\n", c.RawRows, c.Readings, c.DroppedRows)

	reasons := make([]string, 0, len(c.DropReasons))
	for r := range c.DropReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  dropped %s: %d\n", r, c.DropReasons[r])
	}

	fmt.Printf("Hours: %d of %d (%.1f%% complete), days: %d\n",
		c.Hours, c.SpannedHours, 100*c.Completeness, c.Days)
	fmt.Printf("Mean: %.3f, median: %.3f, stddev: %.3f, max: %.3f\n",
		a.Stats.Mean, a.Stats.Median, a.Stats.StdDev, a.Stats.Max)
	fmt.Printf("Threshold (P%.0f): %.3f\n", 100*a.Config.Percentile, a.Threshold)
	fmt.Printf("Extreme hours: %d (%.2f%%)\n", a.ExtremeCount(), 100*a.ExtremeShare())
	fmt.Printf("Days above daily guideline: %d of %d\n",
		a.Guidelines.DaysAboveDaily, a.Guidelines.Days)
	fmt.Printf("Peak hour: %02d:00, peak month: %s\n",
		a.Peaks.PeakHour.Hour, domain.MonthName(a.Peaks.PeakMonth.Month))

	if len(a.Extremes) > 0 {
		top := a.Extremes[0]
		fmt.Printf("\nHighest hour: %s = %.3f (%d readings)\n",
			top.Hour.Format(time.RFC3339), top.Concentration, top.Readings)
	}
}
