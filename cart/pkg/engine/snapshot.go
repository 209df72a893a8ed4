package engine

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Snapshot is the persisted form of a cart. Derived totals are deliberately
// absent: they are rederived on restore and never trusted from storage.
type Snapshot struct {
	Items     []Line          `json:"items"`
	TipAmount decimal.Decimal `json:"tipAmount"`
}

func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Items: c.Items, TipAmount: c.TipAmount}
}

// Restore rebuilds a cart from a snapshot. Line totals and cart totals are
// recomputed from scratch, the tip is clamped non-negative, and lines with a
// non-positive quantity are dropped.
func Restore(s Snapshot) *Cart {
	cart := New()
	for _, line := range s.Items {
		if line.Quantity <= 0 {
			continue
		}
		line.recomputeTotal()
		cart.Items = append(cart.Items, line)
	}
	if !s.TipAmount.IsNegative() {
		cart.TipAmount = round2(s.TipAmount)
	}
	cart.RecomputeTotals()
	return cart
}

// RestoreJSON decodes a persisted snapshot, falling back to an empty cart on
// malformed input so a corrupted entry can never take the application down.
func RestoreJSON(data []byte) *Cart {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return New()
	}
	return Restore(s)
}
