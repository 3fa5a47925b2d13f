// Command validate performs end-to-end integrity checks over the tables a run
// exported: the hourly series is ordered and unique, the classification is
// consistent with a single threshold, the extreme table is exactly the
// extreme subset of the hourly table, and (given the source CSV) a fresh
// analysis reproduces the exported series.
//
// Usage:
//
//	go run ./cmd/validate -out-dir output -input data/pm25_hourly.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/airquality-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrors caps the detail kept per phase.
const maxErrors = 20

func main() {
	outDir := flag.String("out-dir", "", "directory holding the exported tables")
	input := flag.String("input", "", "optional source CSV to re-analyze")
	percentile := flag.Float64("percentile", 0.95, "percentile the run used")
	dropNegative := flag.Bool("drop-negative", false, "the run dropped negative concentrations (DROP_NEGATIVE)")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*outDir, *input, *percentile, *dropNegative); code != 0 {
		os.Exit(code)
	}
}

func run(outDir, input string, percentile float64, dropNegative bool) int {
	fmt.Println("=== PM2.5 Output Integrity Validation ===")
	fmt.Println()

	hourly, err := csvfile.ReadHourlyFile(filepath.Join(outDir, csvfile.HourlyFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load hourly table: %v\n", err)
		return 1
	}
	extremes, err := csvfile.ReadHourlyFile(filepath.Join(outDir, csvfile.ExtremeFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load extreme table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSeries(hourly),
		validateThreshold(hourly, percentile),
		validateExtremeRoundTrip(hourly, extremes),
	}
	if input != "" {
		phases = append(phases, validateReanalysis(input, hourly, percentile, dropNegative))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d hourly, %d extreme\n", len(hourly), len(extremes))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateSeries(hourly []domain.HourlyRecord) *phase {
	p := &phase{name: "Hourly series ordered, unique, complete"}
	if len(hourly) == 0 {
		p.errorf("hourly table is empty")
		return p
	}
	var prev time.Time
	for i, r := range hourly {
		if len(p.errors) >= maxErrors {
			break
		}
		if !r.Hour.Equal(domain.TruncateHour(r.Hour)) {
			p.errorf("row %d: %s is not on the hour", i+1, r.Hour.Format(time.RFC3339))
		}
		if i > 0 && !r.Hour.After(prev) {
			p.errorf("row %d: %s does not follow %s", i+1, r.Hour.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		if math.IsNaN(r.Concentration) || math.IsInf(r.Concentration, 0) {
			p.errorf("row %d: invalid concentration %v", i+1, r.Concentration)
		}
		if r.Readings < 1 {
			p.errorf("row %d: readings %d < 1", i+1, r.Readings)
		}
		if r.Classification == domain.Unclassified {
			p.errorf("row %d: unclassified", i+1)
		}
		prev = r.Hour
	}
	return p
}

func validateThreshold(hourly []domain.HourlyRecord, percentile float64) *phase {
	p := &phase{name: fmt.Sprintf("Classification matches P%g threshold", 100*percentile)}
	threshold, err := domain.Quantile(domain.Concentrations(hourly), percentile)
	if err != nil {
		p.errorf("threshold: %v", err)
		return p
	}

	minExtreme, maxNormal := math.Inf(1), math.Inf(-1)
	for i, r := range hourly {
		want := domain.Normal
		if r.Concentration >= threshold {
			want = domain.Extreme
		}
		if r.Classification != want && len(p.errors) < maxErrors {
			p.errorf("row %d (%s): %.4f classified %s, want %s at threshold %.4f",
				i+1, r.Hour.Format(time.RFC3339), r.Concentration, r.Classification, want, threshold)
		}
		switch r.Classification {
		case domain.Extreme:
			minExtreme = math.Min(minExtreme, r.Concentration)
		case domain.Normal:
			maxNormal = math.Max(maxNormal, r.Concentration)
		}
	}
	if minExtreme <= maxNormal {
		p.errorf("classes overlap: min extreme %.4f <= max normal %.4f", minExtreme, maxNormal)
	}
	return p
}

func validateExtremeRoundTrip(hourly, extremes []domain.HourlyRecord) *phase {
	p := &phase{name: "Extreme table equals extreme subset"}
	want := domain.ExtremeEvents(hourly)
	if len(extremes) == 0 {
		extremes = []domain.HourlyRecord{}
	}
	if diff := cmp.Diff(want, extremes); diff != "" {
		p.errorf("extreme table mismatch (-want +got):\n%s", diff)
	}
	return p
}

func validateReanalysis(input string, hourly []domain.HourlyRecord, percentile float64, dropNegative bool) *phase {
	p := &phase{name: "Re-analysis of source reproduces series"}

	f, err := os.Open(input)
	if err != nil {
		p.errorf("open source: %v", err)
		return p
	}
	defer f.Close()

	table, err := csvfile.ReadTable(context.Background(), f)
	if err != nil {
		p.errorf("read source: %v", err)
		return p
	}

	cfg := domain.DefaultAnalysisConfig()
	cfg.Percentile = percentile
	mapping := domain.NewColumnMapping(os.Getenv("TIMESTAMP_COLUMN"), os.Getenv("CONCENTRATION_COLUMN"))
	mapping.DropNegative = dropNegative
	a, err := domain.AnalyzeRows(table, mapping, cfg)
	if err != nil {
		p.errorf("analyze source: %v", err)
		return p
	}
	if diff := cmp.Diff(a.Records, hourly); diff != "" {
		p.errorf("hourly series differs from re-analysis (-fresh +exported):\n%s", diff)
	}
	return p
}
