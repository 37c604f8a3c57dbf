package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account identifies a ledger account. Accounts carry no state of their own;
// everything the detectors need lives on the transactions between them.
type Account string

// Transaction models one transfer between two accounts. Records are immutable
// once ingested; the graph and both detectors only ever read them.
type Transaction struct {
	ID          string          `json:"id"`
	Sender      Account         `json:"sender"`
	Receiver    Account         `json:"receiver"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	PaymentType string          `json:"payment_type"`
}

// Before reports whether t sorts ahead of other, falling back to transaction
// ID ordering on equal timestamps so adjacency order is reproducible.
func (t Transaction) Before(other Transaction) bool {
	if t.Timestamp.Equal(other.Timestamp) {
		return t.ID < other.ID
	}
	return t.Timestamp.Before(other.Timestamp)
}
