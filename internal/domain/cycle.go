package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cycle is a closed path through the transaction graph: the last hop's
// receiver equals the origin account, no other account repeats, and hop
// timestamps never decrease along the path.
type Cycle struct {
	Origin Account       `json:"origin"`
	Hops   []Transaction `json:"hops"`
}

// HopCount returns the number of edges in the cycle, closing hop included.
func (c Cycle) HopCount() int {
	return len(c.Hops)
}

// TotalAmount sums the amounts moved across every hop of the cycle.
func (c Cycle) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, hop := range c.Hops {
		total = total.Add(hop.Amount)
	}
	return total
}

// AmountDrift returns |last − first| / first, the relative difference between
// the amount leaving the origin and the amount returning to it. The second
// return is false when the first hop's amount is zero and the ratio is
// undefined.
func (c Cycle) AmountDrift() (decimal.Decimal, bool) {
	if len(c.Hops) == 0 {
		return decimal.Zero, false
	}
	first := c.Hops[0].Amount
	if first.IsZero() {
		return decimal.Zero, false
	}
	last := c.Hops[len(c.Hops)-1].Amount
	return last.Sub(first).Abs().Div(first), true
}

// FlattenedHop is one exported row of a detected cycle, at hop granularity
// for the downstream drill-down views.
type FlattenedHop struct {
	CycleID     string          `json:"cycle_id"`
	HopIndex    int             `json:"hop_index"`
	HopCount    int             `json:"hop_count"`
	Sender      Account         `json:"sender"`
	Receiver    Account         `json:"receiver"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	PaymentType string          `json:"payment_type"`
}

// CycleSummary is the per-cycle companion of the flattened hop rows.
type CycleSummary struct {
	CycleID     string          `json:"cycle_id"`
	Origin      Account         `json:"origin"`
	HopCount    int             `json:"hop_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	FirstAmount decimal.Decimal `json:"first_amount"`
	LastAmount  decimal.Decimal `json:"last_amount"`
	StartedAt   time.Time       `json:"started_at"`
	ClosedAt    time.Time       `json:"closed_at"`
}
