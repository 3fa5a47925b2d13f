package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// ReadHourlyFile re-imports a processed hourly or extreme table.
func ReadHourlyFile(path string) ([]domain.HourlyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHourlyRecords(f)
}

// ReadHourlyRecords parses the HourlyHeader layout written by WriteHourly.
// Calendar fields are re-derived from the timestamp and checked against the
// exported values.
func ReadHourlyRecords(r io.Reader) ([]domain.HourlyRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, h := range HourlyHeader {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumn, h)
		}
	}

	var out []domain.HourlyRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		r, err := parseHourlyRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, r)
	}
}

func parseHourlyRow(rec []string, col map[string]int) (domain.HourlyRecord, error) {
	hour, err := time.Parse(time.RFC3339, rec[col["timestamp"]])
	if err != nil {
		return domain.HourlyRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	conc, err := strconv.ParseFloat(rec[col["concentration"]], 64)
	if err != nil {
		return domain.HourlyRecord{}, fmt.Errorf("concentration: %w", err)
	}
	class, ok := domain.ParseClassification(rec[col["classification"]])
	if !ok {
		return domain.HourlyRecord{}, fmt.Errorf("classification %q: unknown label", rec[col["classification"]])
	}
	readings, err := strconv.Atoi(rec[col["readings"]])
	if err != nil {
		return domain.HourlyRecord{}, fmt.Errorf("readings: %w", err)
	}

	r := domain.NewHourlyRecord(hour, conc, class)
	r.Readings = readings
	if got := rec[col["date"]]; got != r.Date {
		return domain.HourlyRecord{}, fmt.Errorf("date %q does not match timestamp", got)
	}
	if got := rec[col["weekday"]]; got != r.Weekday.String() {
		return domain.HourlyRecord{}, fmt.Errorf("weekday %q does not match timestamp", got)
	}
	return r, nil
}
