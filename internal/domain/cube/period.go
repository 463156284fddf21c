package cube

import (
	"time"

	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// Period is a concrete start/end-bounded instance of a granularity, e.g.
// "August 2025" for MONTHLY. Start and End are calendar days at UTC midnight;
// both bounds are inclusive. Periods are derived from dates on demand, never
// stored on their own.
type Period struct {
	Type  Granularity `json:"type"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
}

// PeriodKey identifies a cube bucket: one granularity and one period start.
// The start is kept in date-only string form so the key is safely comparable.
type PeriodKey struct {
	Type  Granularity
	Start string
}

// Key returns the bucket identity of the period
func (p Period) Key() PeriodKey {
	return PeriodKey{Type: p.Type, Start: p.Start.Format(time.DateOnly)}
}

// Contains reports whether the calendar day falls inside the period bounds
func (p Period) Contains(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

func (p Period) String() string {
	return string(p.Type) + " " + p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
}

// PeriodFor returns the single period of the granularity containing the date.
//
// Dates are bucketed by anchor unit: the ISO week (Monday start) for
// week-based granularities, the calendar month for month-based ones. A period
// starts at its anchor unit's start and extends the granularity's span, so
// every date resolves to exactly one period per granularity and period ends
// land on real month lengths (Feb 29 in leap years, Aug 31, and so on).
func PeriodFor(date time.Time, g Granularity) Period {
	day := transaction.Day(date)
	if g.WeekBased() {
		start := WeekStart(day)
		return Period{
			Type:  g,
			Start: start,
			End:   start.AddDate(0, 0, g.SpanWeeks()*7-1),
		}
	}
	start := MonthStart(day)
	return Period{
		Type:  g,
		Start: start,
		End:   start.AddDate(0, g.SpanMonths(), 0).AddDate(0, 0, -1),
	}
}

// WeekStart returns the Monday of the ISO week containing the day
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of the month containing the day
func MonthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}
