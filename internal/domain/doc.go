// Package domain models hourly PM2.5 air-quality measurements and the
// extreme-hour analysis performed over them.
//
// # Data Source
//
// Readings come from fixed-site monitors exported as CSV. Exports differ in
// column naming ("datetimeUtc"/"value" for OpenAQ, "timestamp"/"pm25" for
// others), so rows are carried as [RawRow] maps and resolved through a
// [ColumnMapping] before anything else happens.
//
// # Cleaning
//
// A row is dropped when its concentration is empty or a null sentinel
// ("NA", "NaN", "null", "-"), when the concentration is not a finite number,
// or when the timestamp cannot be parsed. Timestamps without a zone are
// taken as UTC. Drops are counted per reason in [Coverage], never fatal.
//
// # Hourly Series
//
// Readings are floored to the start of their UTC hour and averaged with equal
// weight. Hours without readings are not filled. Calendar fields use the
// fixed English month and Monday-first weekday tables in calendar.go, so
// output does not depend on the process locale.
//
// # Extreme Hours
//
// The threshold is the type-7 quantile of all hourly concentrations at the
// configured percentile (0.95 by default):
//
//	h = (n-1)*p
//	q = x[floor(h)] + (h-floor(h)) * (x[floor(h)+1] - x[floor(h)])
//
// An hour is Extreme when its concentration is >= the threshold. The
// threshold is relative to the dataset itself, not a health guideline; the
// guideline values are only used for the comparison section of the report.
// With small n or many ties the Extreme share drifts from 1-p. That is
// expected.
//
// # Summaries
//
// Summaries group the classified series by hour of day, month, weekday and
// calendar date. Groups with no members are omitted. The extreme table is
// sorted by descending concentration with chronological order kept for ties.
package domain
