package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientData is returned when no usable readings remain after cleaning.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidPercentile is returned for a percentile outside the open interval (0, 1).
	ErrInvalidPercentile = errors.New("percentile must be in (0, 1)")

	// ErrMissingColumn is returned when no source header maps to a canonical field.
	ErrMissingColumn = errors.New("missing column")
)

// RawRow is one source row keyed by its original column header.
type RawRow map[string]string

// RawTable is a source table as read, before column resolution.
type RawTable struct {
	Headers []string
	Rows    []RawRow
}

// Reading is a cleaned measurement, before hourly aggregation.
type Reading struct {
	Timestamp     time.Time `json:"timestamp"`
	Concentration float64   `json:"concentration"`
}

// Classification labels an hourly record relative to the run's threshold.
type Classification string

const (
	Unclassified Classification = ""
	Extreme      Classification = "Extreme"
	Normal       Classification = "Normal"
)

// ParseClassification accepts the exported labels, case-sensitively.
func ParseClassification(s string) (Classification, bool) {
	switch Classification(s) {
	case Extreme, Normal:
		return Classification(s), true
	case Unclassified:
		return Unclassified, true
	default:
		return Unclassified, false
	}
}

// HourlyRecord is the mean concentration of one UTC hour plus calendar fields.
type HourlyRecord struct {
	Hour           time.Time      `json:"hour"`
	Concentration  float64        `json:"concentration"`
	Readings       int            `json:"readings"`
	HourOfDay      int            `json:"hour_of_day"`
	Month          int            `json:"month"`
	Weekday        Weekday        `json:"weekday"`
	Date           string         `json:"date"` // YYYY-MM-DD
	Classification Classification `json:"classification"`
}

// IsExtreme reports whether the record was classified Extreme.
func (r HourlyRecord) IsExtreme() bool { return r.Classification == Extreme }

// Coverage describes how much of the input survived cleaning and what span it covers.
type Coverage struct {
	RawRows      int            `json:"raw_rows"`
	Readings     int            `json:"readings"`
	DroppedRows  int            `json:"dropped_rows"`
	DropReasons  map[string]int `json:"drop_reasons,omitempty"`
	Hours        int            `json:"hours"`
	Days         int            `json:"days"`
	FirstHour    time.Time      `json:"first_hour"`
	LastHour     time.Time      `json:"last_hour"`
	SpannedHours int            `json:"spanned_hours"`
	Completeness float64        `json:"completeness"` // Hours / SpannedHours
}

// WithNormalization returns c with the row counts of a normalization pass.
func (c Coverage) WithNormalization(rawRows int, n NormalizeResult) Coverage {
	c.RawRows = rawRows
	c.DroppedRows = n.Dropped
	c.DropReasons = n.DropReasons
	return c
}

// AnalysisConfig holds the tunable parts of a run.
type AnalysisConfig struct {
	Percentile      float64 `json:"percentile"`
	AnnualGuideline float64 `json:"annual_guideline"`
	DailyGuideline  float64 `json:"daily_guideline"`
	TopN            int     `json:"top_n"`
}

// DefaultAnalysisConfig returns the 95th percentile with WHO 2021 PM2.5 guidelines.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Percentile:      0.95,
		AnnualGuideline: 5,
		DailyGuideline:  15,
		TopN:            10,
	}
}

// Analysis is the full output bundle of one run. Every field is derived from
// the input readings and config; nothing is updated after Analyze returns.
type Analysis struct {
	RunID       uuid.UUID      `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Config      AnalysisConfig `json:"config"`
	Coverage    Coverage       `json:"coverage"`
	Stats       Stats          `json:"stats"`
	Threshold   float64        `json:"threshold"`

	Records  []HourlyRecord `json:"-"`
	Extremes []HourlyRecord `json:"-"`

	ByHour     []HourOfDaySummary `json:"by_hour"`
	ByMonth    []MonthlySummary   `json:"by_month"`
	MonthClass []MonthClassCount  `json:"month_class"`
	ByWeekday  []WeekdaySummary   `json:"by_weekday"`
	Daily      []DailySummary     `json:"-"`

	TopExtremeMonths []GroupCount `json:"top_extreme_months"`
	TopExtremeHours  []GroupCount `json:"top_extreme_hours"`

	Guidelines GuidelineComparison `json:"guidelines"`
	Peaks      Peaks               `json:"peaks"`
}

// ExtremeCount is len(Extremes), kept as a method for templates and logs.
func (a Analysis) ExtremeCount() int { return len(a.Extremes) }

// ExtremeShare is the fraction of hourly records classified Extreme.
func (a Analysis) ExtremeShare() float64 {
	if len(a.Records) == 0 {
		return 0
	}
	return float64(len(a.Extremes)) / float64(len(a.Records))
}
