package detect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
)

// StructuringOptions carries the fan-in thresholds. A transaction is a group
// member only when its amount is at or below MaxPerTxn, the below-reporting-
// threshold signature of structuring; larger inbound transfers are ignored
// rather than disqualifying the window.
type StructuringOptions struct {
	MinSenders     int
	WindowDuration time.Duration
	MaxPerTxn      decimal.Decimal
	MinAggregate   decimal.Decimal
}

// Validate rejects threshold combinations before aggregation starts.
func (o StructuringOptions) Validate() error {
	if o.MinSenders < 2 {
		return fmt.Errorf("min senders must be at least 2, got %d", o.MinSenders)
	}
	if o.WindowDuration <= 0 {
		return fmt.Errorf("window duration must be positive, got %s", o.WindowDuration)
	}
	if o.MaxPerTxn.Sign() <= 0 {
		return fmt.Errorf("max per-transaction amount must be positive, got %s", o.MaxPerTxn)
	}
	if o.MinAggregate.Sign() <= 0 {
		return fmt.Errorf("min aggregate must be positive, got %s", o.MinAggregate)
	}
	return nil
}

// DetectStructuring scans every receiver's inbound transfers for fan-in
// patterns: at least MinSenders distinct senders whose below-threshold
// payments inside one WindowDuration span sum to MinAggregate or more.
//
// Windows are taken greedily: the scan slides over the receiver's sorted
// inbound transfers, and when a window qualifies, all of its members are
// consumed before scanning continues past them. Consecutive overlapping
// qualifying windows therefore collapse into a single maximal group instead
// of producing near-duplicate reports, and no transaction is reported twice
// for the same receiver.
func DetectStructuring(ctx context.Context, g *graph.Graph, opts StructuringOptions) ([]domain.StructuringGroup, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	receivers := g.Receivers()
	sort.Slice(receivers, func(i, j int) bool { return receivers[i] < receivers[j] })

	var groups []domain.StructuringGroup
	for _, receiver := range receivers {
		if err := ctx.Err(); err != nil {
			return groups, err
		}
		groups = append(groups, aggregateReceiver(receiver, g.Incoming(receiver), opts)...)
	}

	for i := range groups {
		groups[i].GroupID = fmt.Sprintf("GRP-%06d", i+1)
	}
	return groups, nil
}

func aggregateReceiver(receiver domain.Account, inbound []domain.Transaction, opts StructuringOptions) []domain.StructuringGroup {
	// Keep only transfers carrying the structuring signature. The slice is
	// already sorted by timestamp.
	members := make([]domain.Transaction, 0, len(inbound))
	for _, tx := range inbound {
		if tx.Amount.Cmp(opts.MaxPerTxn) <= 0 {
			members = append(members, tx)
		}
	}

	var groups []domain.StructuringGroup
	for start := 0; start < len(members); {
		windowEnd := members[start].Timestamp.Add(opts.WindowDuration)

		end := start + 1
		for end < len(members) && !members[end].Timestamp.After(windowEnd) {
			end++
		}

		window := members[start:end]
		senders := distinctSenders(window)
		total := sumAmounts(window)

		if len(senders) >= opts.MinSenders && total.Cmp(opts.MinAggregate) >= 0 {
			groups = append(groups, domain.StructuringGroup{
				Receiver:     receiver,
				WindowStart:  window[0].Timestamp,
				WindowEnd:    window[len(window)-1].Timestamp,
				Senders:      senders,
				Transactions: append([]domain.Transaction(nil), window...),
				TotalAmount:  total,
			})
			start = end
			continue
		}
		start++
	}
	return groups
}

func distinctSenders(txs []domain.Transaction) []domain.Account {
	seen := make(map[domain.Account]struct{}, len(txs))
	for _, tx := range txs {
		seen[tx.Sender] = struct{}{}
	}
	senders := make([]domain.Account, 0, len(seen))
	for sender := range seen {
		senders = append(senders, sender)
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i] < senders[j] })
	return senders
}

func sumAmounts(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
