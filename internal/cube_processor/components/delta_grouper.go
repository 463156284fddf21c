package components

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/delta"
)

// DeltaGrouperImpl implements the DeltaGrouper interface
type DeltaGrouperImpl struct {
	calculator service.PeriodCalculator
	logger     *slog.Logger
}

// NewDeltaGrouper creates a new DeltaGrouperImpl
func NewDeltaGrouper(calculator service.PeriodCalculator, logger *slog.Logger) service.DeltaGrouper {
	return &DeltaGrouperImpl{
		calculator: calculator,
		logger:     logger,
	}
}

// GroupByPeriod nets the deltas into per-period buckets. The old side of each
// delta is debited from the periods containing the old date, the new side
// credited into the periods containing the new date. Many deltas landing in
// the same bucket collapse into one adjustment per dimension tuple, so the
// number of store writes scales with buckets touched, not with delta count.
//
// Empty deltas are skipped; invalid ones fail the whole group so a partial
// batch is never applied.
func (g *DeltaGrouperImpl) GroupByPeriod(deltas []*delta.TransactionDelta) (map[cube.PeriodKey]*cube.Bucket, error) {
	// Period lookup is indexed per distinct date, so a batch where many
	// deltas share dates resolves the calendar once per date, not per delta.
	dates := make([]time.Time, 0, 2*len(deltas))
	for _, d := range deltas {
		if d.OldValues != nil {
			dates = append(dates, d.OldValues.Day())
		}
		if d.NewValues != nil {
			dates = append(dates, d.NewValues.Day())
		}
	}
	index := g.calculator.BuildIndex(dates)

	buckets := make(map[cube.PeriodKey]*cube.Bucket)
	for _, d := range deltas {
		if d.IsEmpty() {
			g.logger.Debug("Skipping empty delta", "transaction_id", d.TransactionID.String())
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("delta for transaction %s: %w", d.TransactionID.String(), err)
		}

		if d.OldValues != nil {
			for _, p := range index[d.OldValues.Day()] {
				g.bucket(buckets, p).Debit(*d.OldValues)
			}
		}
		if d.NewValues != nil {
			for _, p := range index[d.NewValues.Day()] {
				g.bucket(buckets, p).Credit(*d.NewValues)
			}
		}
	}

	return buckets, nil
}

func (g *DeltaGrouperImpl) bucket(buckets map[cube.PeriodKey]*cube.Bucket, p cube.Period) *cube.Bucket {
	key := p.Key()
	b, ok := buckets[key]
	if !ok {
		b = cube.NewBucket(p)
		buckets[key] = b
	}
	return b
}
