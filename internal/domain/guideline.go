package domain

// GuidelineComparison relates the series to the two external reference
// values. The guidelines are inputs; nothing here hardcodes them.
type GuidelineComparison struct {
	AnnualGuideline float64 `json:"annual_guideline"`
	DailyGuideline  float64 `json:"daily_guideline"`

	OverallMean   float64 `json:"overall_mean"`
	AnnualRatio   float64 `json:"annual_ratio"` // OverallMean / AnnualGuideline
	ExceedsAnnual bool    `json:"exceeds_annual"`

	Days              int     `json:"days"`
	DaysAboveDaily    int     `json:"days_above_daily"`
	DaysAboveDailyPct float64 `json:"days_above_daily_pct"`
	HoursAboveDaily   int     `json:"hours_above_daily"`
}

// Peaks names the highest and lowest groups of the diurnal and monthly profiles.
type Peaks struct {
	PeakHour    HourOfDaySummary `json:"peak_hour"`
	LowestHour  HourOfDaySummary `json:"lowest_hour"`
	PeakMonth   MonthlySummary   `json:"peak_month"`
	LowestMonth MonthlySummary   `json:"lowest_month"`
}

// CompareGuidelines evaluates the overall mean against annualGuideline and
// the daily means against dailyGuideline.
func CompareGuidelines(stats Stats, daily []DailySummary, records []HourlyRecord, annualGuideline, dailyGuideline float64) GuidelineComparison {
	g := GuidelineComparison{
		AnnualGuideline: annualGuideline,
		DailyGuideline:  dailyGuideline,
		OverallMean:     stats.Mean,
		ExceedsAnnual:   stats.Mean > annualGuideline,
		Days:            len(daily),
	}
	if annualGuideline > 0 {
		g.AnnualRatio = stats.Mean / annualGuideline
	}
	for _, d := range daily {
		if d.ExceedsDailyGuideline {
			g.DaysAboveDaily++
		}
	}
	if len(daily) > 0 {
		g.DaysAboveDailyPct = 100 * float64(g.DaysAboveDaily) / float64(len(daily))
	}
	for _, r := range records {
		if r.Concentration > dailyGuideline {
			g.HoursAboveDaily++
		}
	}
	return g
}

// FindPeaks picks max/min mean rows; the earliest key wins ties.
func FindPeaks(byHour []HourOfDaySummary, byMonth []MonthlySummary) Peaks {
	var p Peaks
	for i, h := range byHour {
		if i == 0 || h.Mean > p.PeakHour.Mean {
			p.PeakHour = h
		}
		if i == 0 || h.Mean < p.LowestHour.Mean {
			p.LowestHour = h
		}
	}
	for i, m := range byMonth {
		if i == 0 || m.Mean > p.PeakMonth.Mean {
			p.PeakMonth = m
		}
		if i == 0 || m.Mean < p.LowestMonth.Mean {
			p.LowestMonth = m
		}
	}
	return p
}
