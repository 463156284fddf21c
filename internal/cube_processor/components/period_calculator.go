package components

import (
	"time"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
)

// PeriodCalculatorImpl implements the PeriodCalculator interface
type PeriodCalculatorImpl struct{}

// NewPeriodCalculator creates a new PeriodCalculatorImpl
func NewPeriodCalculator() service.PeriodCalculator {
	return &PeriodCalculatorImpl{}
}

// PeriodFor returns the single period of the granularity containing the date
func (c *PeriodCalculatorImpl) PeriodFor(date time.Time, g cube.Granularity) cube.Period {
	return cube.PeriodFor(date, g)
}

// PeriodsFor returns one period per supported granularity containing the date
func (c *PeriodCalculatorImpl) PeriodsFor(date time.Time) []cube.Period {
	granularities := cube.SupportedGranularities()
	periods := make([]cube.Period, 0, len(granularities))
	for _, g := range granularities {
		periods = append(periods, cube.PeriodFor(date, g))
	}
	return periods
}

// BuildIndex maps each distinct day among dates to its containing periods.
// PeriodsFor runs once per distinct day, so indexing a batch of deltas costs
// a handful of calendar computations even when thousands of deltas share the
// same few dates.
func (c *PeriodCalculatorImpl) BuildIndex(dates []time.Time) map[time.Time][]cube.Period {
	index := make(map[time.Time][]cube.Period)
	for _, date := range dates {
		day := transaction.Day(date)
		if _, ok := index[day]; ok {
			continue
		}
		index[day] = c.PeriodsFor(day)
	}
	return index
}

// DistinctPeriods returns the deduplicated union of periods containing any
// of the dates
func (c *PeriodCalculatorImpl) DistinctPeriods(dates []time.Time) []cube.Period {
	seen := make(map[cube.PeriodKey]struct{})
	var periods []cube.Period
	for _, group := range c.BuildIndex(dates) {
		for _, p := range group {
			key := p.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			periods = append(periods, p)
		}
	}
	return periods
}

// WidenToAnchorUnits expands [start, end] outward to whole anchor units: the
// result begins at the earlier of start's week and month starts and finishes
// at the later of end's week and month ends. A scan over the widened range
// sees every transaction feeding any bucket anchored inside the original one.
func (c *PeriodCalculatorImpl) WidenToAnchorUnits(start, end time.Time) (time.Time, time.Time) {
	startDay := transaction.Day(start)
	endDay := transaction.Day(end)

	from := cube.WeekStart(startDay)
	if ms := cube.MonthStart(startDay); ms.Before(from) {
		from = ms
	}

	to := cube.WeekStart(endDay).AddDate(0, 0, 6)
	if me := cube.MonthStart(endDay).AddDate(0, 1, -1); me.After(to) {
		to = me
	}

	return from, to
}
