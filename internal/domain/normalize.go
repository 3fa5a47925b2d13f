package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// Drop reasons recorded in Coverage.DropReasons.
const (
	DropNullValue    = "null_value"
	DropBadValue     = "bad_value"
	DropBadTimestamp = "bad_timestamp"
)

// DefaultTimestampColumns and DefaultConcentrationColumns are the source
// headers recognized out of the box, in priority order.
var (
	DefaultTimestampColumns     = []string{"timestamp", "datetime", "datetimeUtc", "datetime_utc", "date", "time", "utc"}
	DefaultConcentrationColumns = []string{"concentration", "value", "pm25", "pm2.5", "pm2_5", "PM2.5"}
)

// nullValues are sentinels exporters write for a missing measurement.
var nullValues = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
}

// fallbackLayouts cover the non-ISO forms seen in spreadsheet exports.
// All are interpreted as UTC.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
}

// ColumnMapping lists candidate source headers for each canonical field.
// DropNegative additionally drops negative concentrations (such as a -999
// missing-value sentinel) as bad_value; by default they are kept.
type ColumnMapping struct {
	Timestamp     []string
	Concentration []string
	DropNegative  bool
}

// NewColumnMapping puts the configured names ahead of the defaults. Empty
// names are ignored.
func NewColumnMapping(timestampColumn, concentrationColumn string) ColumnMapping {
	return ColumnMapping{
		Timestamp:     prependNonEmpty(timestampColumn, DefaultTimestampColumns),
		Concentration: prependNonEmpty(concentrationColumn, DefaultConcentrationColumns),
	}
}

func prependNonEmpty(first string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	if first = strings.TrimSpace(first); first != "" {
		out = append(out, first)
	}
	return append(out, rest...)
}

// Resolve picks the source header used for each canonical field. Matching is
// case-insensitive and ignores surrounding whitespace; the first candidate
// present wins.
func (m ColumnMapping) Resolve(headers []string) (timestampCol, concentrationCol string, err error) {
	index := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := index[key]; !ok {
			index[key] = h
		}
	}

	timestampCol, ok := lookupColumn(index, m.Timestamp)
	if !ok {
		return "", "", fmt.Errorf("%w: timestamp (tried %s)", ErrMissingColumn, strings.Join(m.Timestamp, ", "))
	}
	concentrationCol, ok = lookupColumn(index, m.Concentration)
	if !ok {
		return "", "", fmt.Errorf("%w: concentration (tried %s)", ErrMissingColumn, strings.Join(m.Concentration, ", "))
	}
	return timestampCol, concentrationCol, nil
}

func lookupColumn(index map[string]string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if h, ok := index[strings.ToLower(strings.TrimSpace(c))]; ok {
			return h, true
		}
	}
	return "", false
}

// DroppedRow identifies a source row removed during cleaning.
type DroppedRow struct {
	Index  int // zero-based, excluding the header
	Reason string
}

// NormalizeResult is the output of Normalize.
type NormalizeResult struct {
	Readings    []Reading
	Dropped     int
	DropReasons map[string]int
	Drops       []DroppedRow
}

// Normalize resolves columns against headers and converts rows to readings.
// Rows that fail to parse are dropped and counted; input order is kept.
func Normalize(headers []string, rows []RawRow, mapping ColumnMapping) (NormalizeResult, error) {
	tsCol, valCol, err := mapping.Resolve(headers)
	if err != nil {
		return NormalizeResult{}, err
	}

	res := NormalizeResult{
		Readings:    make([]Reading, 0, len(rows)),
		DropReasons: make(map[string]int),
	}
	for i, row := range rows {
		reading, reason := normalizeRow(row[tsCol], row[valCol], mapping.DropNegative)
		if reason != "" {
			res.Dropped++
			res.DropReasons[reason]++
			res.Drops = append(res.Drops, DroppedRow{Index: i, Reason: reason})
			continue
		}
		res.Readings = append(res.Readings, reading)
	}
	return res, nil
}

// normalizeRow returns the reading or a non-empty drop reason.
func normalizeRow(rawTimestamp, rawValue string, dropNegative bool) (Reading, string) {
	value, reason := parseConcentration(rawValue, dropNegative)
	if reason != "" {
		return Reading{}, reason
	}
	ts, err := ParseTimestamp(rawTimestamp)
	if err != nil {
		return Reading{}, DropBadTimestamp
	}
	return Reading{Timestamp: ts, Concentration: value}, ""
}

func parseConcentration(s string, dropNegative bool) (float64, string) {
	s = strings.TrimSpace(s)
	if nullValues[strings.ToLower(s)] {
		return 0, DropNullValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, DropBadValue
	}
	if dropNegative && v < 0 {
		return 0, DropBadValue
	}
	return v, ""
}

// ParseTimestamp parses an absolute date-time and returns it in UTC.
// ISO-8601 is tried first; zone-less values are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse timestamp: empty")
	}
	if t, err := iso8601.ParseString(s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized format", s)
}
