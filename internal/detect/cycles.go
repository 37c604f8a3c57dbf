// Package detect implements the two laundering typology detectors: bounded
// depth-first cycle search and time-windowed structuring aggregation.
package detect

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
)

// CycleOptions bounds a cycle search. All bounds are mandatory; Validate
// rejects configurations that would make the search unbounded.
type CycleOptions struct {
	// MaxHops caps the path length, closing hop included.
	MaxHops int
	// TolerancePct is the maximum relative drift between the first and last
	// hop amounts, in [0,1].
	TolerancePct float64
	// ExplorationCap caps the total number of search frames pushed across
	// the whole traversal. Worst-case branching is exponential in out-degree
	// raised to MaxHops, so the cap is the safety valve that guarantees
	// termination on dense graphs.
	ExplorationCap int
}

// Validate rejects option combinations before any search starts.
func (o CycleOptions) Validate() error {
	if o.MaxHops < 2 {
		return fmt.Errorf("max hops must be at least 2, got %d", o.MaxHops)
	}
	if o.TolerancePct < 0 || o.TolerancePct > 1 {
		return fmt.Errorf("tolerance must be within [0,1], got %g", o.TolerancePct)
	}
	if o.ExplorationCap <= 0 {
		return fmt.Errorf("exploration cap must be positive, got %d", o.ExplorationCap)
	}
	return nil
}

// CycleResult carries every qualifying cycle found from one origin account.
// Truncated is set when the exploration cap (or a cancelled context) halted
// the search early; the cycles found up to that point are still returned.
type CycleResult struct {
	Origin         domain.Account
	Cycles         []domain.Cycle
	Truncated      bool
	FramesExpanded int
}

// frame is one suspended level of the traversal: the account whose sorted
// outgoing edges are being iterated and the index of the next edge to try.
// The path and visited set live alongside the stack and are pushed and popped
// in lockstep.
type frame struct {
	account domain.Account
	next    int
}

// DetectCycles runs a bounded depth-first search from origin and returns
// every qualifying cycle. The traversal uses an explicit frame stack rather
// than recursion, which keeps call-stack depth flat and gives each loop
// iteration a natural point to check the exploration cap and the context.
//
// An edge extends the path when its timestamp is not before the previous
// hop's (money cannot move backward in time) and its receiver has not been
// visited; the origin itself is only ever re-entered as the closing move. A
// closing edge yields a cycle when the hop count is at least two and the
// returning amount is within TolerancePct of the amount that left the origin.
// The search does not stop at the first match.
//
// An origin absent from the graph yields an empty result and no error.
func DetectCycles(ctx context.Context, g *graph.Graph, origin domain.Account, opts CycleOptions) (CycleResult, error) {
	if err := opts.Validate(); err != nil {
		return CycleResult{}, err
	}

	result := CycleResult{Origin: origin}
	if len(g.Outgoing(origin)) == 0 {
		return result, nil
	}

	stack := make([]frame, 1, opts.MaxHops+1)
	stack[0] = frame{account: origin}
	path := make([]domain.Transaction, 0, opts.MaxHops)
	visited := map[domain.Account]bool{origin: true}
	expanded := 1 // the root frame

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			result.Truncated = true
			result.FramesExpanded = expanded
			return result, err
		}

		top := &stack[len(stack)-1]
		edges := g.Outgoing(top.account)
		pushed := false

		for top.next < len(edges) {
			edge := edges[top.next]
			top.next++

			if len(path) > 0 && edge.Timestamp.Before(path[len(path)-1].Timestamp) {
				continue
			}

			if edge.Receiver == origin {
				hops := len(path) + 1
				if hops >= 2 && hops <= opts.MaxHops && withinTolerance(path[0].Amount, edge.Amount, opts.TolerancePct) {
					result.Cycles = append(result.Cycles, closeCycle(origin, path, edge))
				}
				continue
			}

			if visited[edge.Receiver] {
				continue
			}
			// Only extend while a closing hop could still fit under MaxHops.
			if len(path)+2 > opts.MaxHops {
				continue
			}

			if expanded >= opts.ExplorationCap {
				result.Truncated = true
				result.FramesExpanded = expanded
				return result, nil
			}
			expanded++

			visited[edge.Receiver] = true
			path = append(path, edge)
			stack = append(stack, frame{account: edge.Receiver})
			pushed = true
			break
		}

		if pushed {
			continue
		}

		// Extensions exhausted: pop the frame and un-mark its account.
		stack = stack[:len(stack)-1]
		if len(path) > 0 {
			last := path[len(path)-1]
			path = path[:len(path)-1]
			delete(visited, last.Receiver)
		}
	}

	result.FramesExpanded = expanded
	return result, nil
}

func closeCycle(origin domain.Account, path []domain.Transaction, closing domain.Transaction) domain.Cycle {
	hops := make([]domain.Transaction, len(path)+1)
	copy(hops, path)
	hops[len(path)] = closing
	return domain.Cycle{Origin: origin, Hops: hops}
}

// withinTolerance reports whether |last − first| / first ≤ tolerance. A zero
// first amount leaves the ratio undefined and is defined to mean no match.
func withinTolerance(first, last decimal.Decimal, tolerance float64) bool {
	if first.IsZero() {
		return false
	}
	limit := first.Abs().Mul(decimal.NewFromFloat(tolerance))
	return last.Sub(first).Abs().Cmp(limit) <= 0
}
