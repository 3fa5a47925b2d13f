package domain

import (
	"fmt"
	"time"
)

// Weekday is a Monday-first day of week, 1 (Monday) through 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

var monthNames = [...]string{
	time.January:   "January",
	time.February:  "February",
	time.March:     "March",
	time.April:     "April",
	time.May:       "May",
	time.June:      "June",
	time.July:      "July",
	time.August:    "August",
	time.September: "September",
	time.October:   "October",
	time.November:  "November",
	time.December:  "December",
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return ""
	}
	return weekdayNames[d]
}

// WeekdayOf maps a Go weekday (Sunday=0) onto the Monday-first enumeration.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// ParseWeekday is the inverse of Weekday.String.
func ParseWeekday(s string) (Weekday, bool) {
	for d := Monday; d <= Sunday; d++ {
		if weekdayNames[d] == s {
			return d, true
		}
	}
	return 0, false
}

// MonthName returns the English month name for m, or "" when out of range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m]
}

// MonthAbbrev returns the three-letter form of MonthName.
func MonthAbbrev(m int) string {
	name := MonthName(m)
	if len(name) < 3 {
		return name
	}
	return name[:3]
}

// MarshalText encodes the weekday by name.
func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a weekday name.
func (d *Weekday) UnmarshalText(b []byte) error {
	wd, ok := ParseWeekday(string(b))
	if !ok {
		return fmt.Errorf("unknown weekday %q", b)
	}
	*d = wd
	return nil
}
