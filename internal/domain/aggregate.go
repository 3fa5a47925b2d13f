package domain

import (
	"sort"
	"time"
)

// dateLayout is the calendar-date form used in records and exports.
const dateLayout = "2006-01-02"

// AggregateHourly floors every reading to its UTC hour and averages the
// readings that share an hour. The result has one record per distinct hour,
// ascending by hour. Hours with no readings are not produced.
func AggregateHourly(readings []Reading) []HourlyRecord {
	if len(readings) == 0 {
		return nil
	}

	type acc struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*acc)
	for _, r := range readings {
		hour := TruncateHour(r.Timestamp)
		a, ok := buckets[hour]
		if !ok {
			a = &acc{}
			buckets[hour] = a
		}
		a.sum += r.Concentration
		a.count++
	}

	records := make([]HourlyRecord, 0, len(buckets))
	for hour, a := range buckets {
		records = append(records, newHourlyRecord(hour, a.sum/float64(a.count), a.count))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Hour.Before(records[j].Hour)
	})
	return records
}

// TruncateHour floors t to the start of its hour in UTC.
func TruncateHour(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
}

func newHourlyRecord(hour time.Time, mean float64, count int) HourlyRecord {
	return HourlyRecord{
		Hour:          hour,
		Concentration: mean,
		Readings:      count,
		HourOfDay:     hour.Hour(),
		Month:         int(hour.Month()),
		Weekday:       WeekdayOf(hour),
		Date:          hour.Format(dateLayout),
	}
}

// NewHourlyRecord builds a record for an already-aggregated hour, deriving
// the calendar fields from the hour. Used when re-importing exported series.
func NewHourlyRecord(hour time.Time, concentration float64, class Classification) HourlyRecord {
	r := newHourlyRecord(TruncateHour(hour), concentration, 1)
	r.Classification = class
	return r
}

// MeasureCoverage summarizes the span of an hourly series. Raw row and drop
// counts come from normalization and are filled in by the caller.
func MeasureCoverage(records []HourlyRecord) Coverage {
	if len(records) == 0 {
		return Coverage{}
	}
	days := make(map[string]struct{})
	for _, r := range records {
		days[r.Date] = struct{}{}
	}
	first := records[0].Hour
	last := records[len(records)-1].Hour
	spanned := int(last.Sub(first)/time.Hour) + 1
	return Coverage{
		Hours:        len(records),
		Days:         len(days),
		FirstHour:    first,
		LastHour:     last,
		SpannedHours: spanned,
		Completeness: float64(len(records)) / float64(spanned),
	}
}
