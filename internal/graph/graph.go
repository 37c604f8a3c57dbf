// Package graph builds the immutable in-memory transaction multigraph both
// detectors run against. The graph is constructed once per run and never
// mutated afterwards, so it is safe to share across concurrent searches
// without locking.
package graph

import (
	"sort"
	"time"

	"github.com/nairav/amlscan/internal/domain"
)

// Window restricts a build to transactions within [Start, End]. A zero Start
// or End leaves that side unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(ts time.Time) bool {
	if !w.Start.IsZero() && ts.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && ts.After(w.End) {
		return false
	}
	return true
}

// BuildOptions tunes graph construction.
type BuildOptions struct {
	// Window, when non-zero, drops transactions outside the interval.
	Window Window
}

// Graph is a directed multigraph of accounts and transactions. Outgoing
// adjacency is keyed by sender, incoming by receiver; both lists are sorted
// ascending by timestamp (transaction ID breaks ties) so traversals and
// window scans are reproducible.
type Graph struct {
	outgoing map[domain.Account][]domain.Transaction
	incoming map[domain.Account][]domain.Transaction
	nodes    map[domain.Account]struct{}
	edges    int
	skipped  int
}

// Build constructs a Graph from the supplied records. Self-loop transfers are
// dropped as non-meaningful, and records failing field validation are skipped
// and counted rather than failing the run. The only fatal condition is a
// graph with zero nodes.
func Build(transactions []domain.Transaction, opts BuildOptions) (*Graph, error) {
	g := &Graph{
		outgoing: make(map[domain.Account][]domain.Transaction),
		incoming: make(map[domain.Account][]domain.Transaction),
		nodes:    make(map[domain.Account]struct{}),
	}

	for _, tx := range transactions {
		if err := validate(tx); err != nil {
			g.skipped++
			continue
		}
		if tx.Sender == tx.Receiver {
			continue
		}
		if !opts.Window.contains(tx.Timestamp) {
			continue
		}

		g.outgoing[tx.Sender] = append(g.outgoing[tx.Sender], tx)
		g.incoming[tx.Receiver] = append(g.incoming[tx.Receiver], tx)
		g.nodes[tx.Sender] = struct{}{}
		g.nodes[tx.Receiver] = struct{}{}
		g.edges++
	}

	if len(g.nodes) == 0 {
		return nil, domain.ErrEmptyInput
	}

	for account := range g.outgoing {
		sortByTimestamp(g.outgoing[account])
	}
	for account := range g.incoming {
		sortByTimestamp(g.incoming[account])
	}

	return g, nil
}

func validate(tx domain.Transaction) error {
	switch {
	case tx.ID == "":
		return &domain.SchemaError{Field: "transaction_id", Reason: "missing"}
	case tx.Sender == "":
		return &domain.SchemaError{Record: tx.ID, Field: "sender_account", Reason: "missing"}
	case tx.Receiver == "":
		return &domain.SchemaError{Record: tx.ID, Field: "receiver_account", Reason: "missing"}
	case tx.Timestamp.IsZero():
		return &domain.SchemaError{Record: tx.ID, Field: "timestamp", Reason: "missing"}
	case tx.Amount.Sign() < 0:
		return &domain.SchemaError{Record: tx.ID, Field: "amount", Reason: "negative"}
	}
	return nil
}

func sortByTimestamp(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Before(txs[j])
	})
}

// Outgoing returns the account's outgoing transactions in ascending timestamp
// order. Callers must not mutate the returned slice.
func (g *Graph) Outgoing(account domain.Account) []domain.Transaction {
	return g.outgoing[account]
}

// Incoming returns the account's inbound transactions in ascending timestamp
// order. Callers must not mutate the returned slice.
func (g *Graph) Incoming(account domain.Account) []domain.Transaction {
	return g.incoming[account]
}

// HasAccount reports whether the account appears anywhere in the graph.
func (g *Graph) HasAccount(account domain.Account) bool {
	_, ok := g.nodes[account]
	return ok
}

// Senders returns every account with at least one outgoing transaction, the
// candidate origins for cycle searches. Order is unspecified.
func (g *Graph) Senders() []domain.Account {
	senders := make([]domain.Account, 0, len(g.outgoing))
	for account := range g.outgoing {
		senders = append(senders, account)
	}
	return senders
}

// Receivers returns every account with at least one inbound transaction, the
// candidates for structuring aggregation. Order is unspecified.
func (g *Graph) Receivers() []domain.Account {
	receivers := make([]domain.Account, 0, len(g.incoming))
	for account := range g.incoming {
		receivers = append(receivers, account)
	}
	return receivers
}

// NodeCount returns the number of distinct accounts.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of transactions kept in the graph.
func (g *Graph) EdgeCount() int { return g.edges }

// SkippedRecords returns how many input records failed validation and were
// excluded from the build.
func (g *Graph) SkippedRecords() int { return g.skipped }
