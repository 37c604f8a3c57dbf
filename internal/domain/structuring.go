package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StructuringGroup captures a fan-in pattern: many below-threshold transfers
// from distinct senders landing on one receiver inside a bounded time window.
type StructuringGroup struct {
	GroupID      string          `json:"group_id"`
	Receiver     Account         `json:"receiver"`
	WindowStart  time.Time       `json:"window_start"`
	WindowEnd    time.Time       `json:"window_end"`
	Senders      []Account       `json:"senders"`
	Transactions []Transaction   `json:"transactions"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// DistinctSenders returns the number of unique contributing senders.
func (g StructuringGroup) DistinctSenders() int {
	return len(g.Senders)
}

// StructuringSummary is the group-level export companion of the per-member
// drill-down rows.
type StructuringSummary struct {
	GroupID         string          `json:"group_id"`
	Receiver        Account         `json:"receiver"`
	DistinctSenders int             `json:"distinct_senders"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	WindowStart     time.Time       `json:"window_start"`
	WindowEnd       time.Time       `json:"window_end"`
}

// Summary projects the group down to its export summary row.
func (g StructuringGroup) Summary() StructuringSummary {
	return StructuringSummary{
		GroupID:         g.GroupID,
		Receiver:        g.Receiver,
		DistinctSenders: g.DistinctSenders(),
		TotalAmount:     g.TotalAmount,
		WindowStart:     g.WindowStart,
		WindowEnd:       g.WindowEnd,
	}
}
