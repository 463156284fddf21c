package cube

import "github.com/fintrack-trend-cube/internal/domain/transaction"

// Bucket accumulates the net adjustments for one period before they are
// written to the store. Deltas touching the same period and dimension tuple
// collapse into a single adjustment.
type Bucket struct {
	Period      Period
	Adjustments map[DimensionKey]*Adjustment
}

// NewBucket creates an empty bucket for the period
func NewBucket(p Period) *Bucket {
	return &Bucket{
		Period:      p,
		Adjustments: make(map[DimensionKey]*Adjustment),
	}
}

// Credit adds one transaction's amount to the bucket at its dimension tuple
func (b *Bucket) Credit(f transaction.CubeRelevantFields) {
	b.adjustment(DimensionOf(f)).Add(f.Amount)
}

// Debit subtracts one transaction's amount from the bucket at its dimension tuple
func (b *Bucket) Debit(f transaction.CubeRelevantFields) {
	b.adjustment(DimensionOf(f)).Subtract(f.Amount)
}

// IsEmpty reports whether every accumulated adjustment nets to zero
func (b *Bucket) IsEmpty() bool {
	for _, adj := range b.Adjustments {
		if !adj.IsZero() {
			return false
		}
	}
	return true
}

func (b *Bucket) adjustment(k DimensionKey) *Adjustment {
	adj, ok := b.Adjustments[k]
	if !ok {
		adj = &Adjustment{}
		b.Adjustments[k] = adj
	}
	return adj
}
