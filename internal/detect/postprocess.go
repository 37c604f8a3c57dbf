package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nairav/amlscan/internal/domain"
)

// RankPolicy selects how surviving cycles are ordered before export. The
// ordering is a reporting-policy choice, so it is configuration rather than
// a constant.
type RankPolicy string

const (
	// RankHopsThenValue orders by ascending hop count, then descending total
	// value. Shorter, heavier round-trips surface first.
	RankHopsThenValue RankPolicy = "hops,value"
	// RankValue orders by descending total value alone.
	RankValue RankPolicy = "value"
)

// PostProcessOptions tunes cycle post-processing.
type PostProcessOptions struct {
	Ranking RankPolicy
}

// Validate rejects unknown rank policies. An empty policy is allowed and
// resolves to RankHopsThenValue.
func (o PostProcessOptions) Validate() error {
	switch o.Ranking {
	case "", RankHopsThenValue, RankValue:
		return nil
	}
	return fmt.Errorf("unknown rank policy %q", o.Ranking)
}

// Process canonicalizes, deduplicates, ranks and flattens raw detector
// output. Two cycles built from the same multiset of edges are rotations of
// one underlying loop (each rotation is found from a different origin); they
// collapse to a single canonical form keyed by the rotation that starts at
// the smallest account id, with the earliest first-hop timestamp breaking
// ties between equal accounts.
//
// The surviving representative for each canonical form is chosen
// deterministically (smallest origin, then earliest first hop), so repeated
// runs over identical input produce identical output regardless of the order
// the detector workers finished in.
func Process(cycles []domain.Cycle, opts PostProcessOptions) ([]domain.CycleSummary, []domain.FlattenedHop) {
	ranking := opts.Ranking
	if ranking == "" {
		ranking = RankHopsThenValue
	}

	unique := dedupe(cycles)
	rank(unique, ranking)

	summaries := make([]domain.CycleSummary, 0, len(unique))
	var hops []domain.FlattenedHop

	for i, cycle := range unique {
		cycleID := fmt.Sprintf("CYC-%06d", i+1)
		first := cycle.Hops[0]
		last := cycle.Hops[len(cycle.Hops)-1]

		summaries = append(summaries, domain.CycleSummary{
			CycleID:     cycleID,
			Origin:      cycle.Origin,
			HopCount:    cycle.HopCount(),
			TotalAmount: cycle.TotalAmount(),
			FirstAmount: first.Amount,
			LastAmount:  last.Amount,
			StartedAt:   first.Timestamp,
			ClosedAt:    last.Timestamp,
		})

		for idx, hop := range cycle.Hops {
			hops = append(hops, domain.FlattenedHop{
				CycleID:     cycleID,
				HopIndex:    idx + 1,
				HopCount:    cycle.HopCount(),
				Sender:      hop.Sender,
				Receiver:    hop.Receiver,
				Amount:      hop.Amount,
				Timestamp:   hop.Timestamp,
				PaymentType: hop.PaymentType,
			})
		}
	}

	return summaries, hops
}

func dedupe(cycles []domain.Cycle) []domain.Cycle {
	type keyed struct {
		key   string
		cycle domain.Cycle
	}

	keyedCycles := make([]keyed, 0, len(cycles))
	for _, cycle := range cycles {
		if len(cycle.Hops) == 0 {
			continue
		}
		keyedCycles = append(keyedCycles, keyed{key: canonicalKey(cycle), cycle: cycle})
	}

	// Deterministic representative per key: smallest origin wins, then the
	// earliest first hop.
	sort.Slice(keyedCycles, func(i, j int) bool {
		if keyedCycles[i].key != keyedCycles[j].key {
			return keyedCycles[i].key < keyedCycles[j].key
		}
		if keyedCycles[i].cycle.Origin != keyedCycles[j].cycle.Origin {
			return keyedCycles[i].cycle.Origin < keyedCycles[j].cycle.Origin
		}
		return keyedCycles[i].cycle.Hops[0].Before(keyedCycles[j].cycle.Hops[0])
	})

	unique := make([]domain.Cycle, 0, len(keyedCycles))
	lastKey := ""
	for _, kc := range keyedCycles {
		if kc.key == lastKey {
			continue
		}
		lastKey = kc.key
		unique = append(unique, kc.cycle)
	}
	return unique
}

// canonicalKey rotates the hop sequence to start at the smallest sender
// account (ties broken by the earliest hop) and joins the transaction IDs in
// that order. Rotations of the same loop share the key.
func canonicalKey(cycle domain.Cycle) string {
	hops := cycle.Hops
	best := 0
	for i := 1; i < len(hops); i++ {
		if hops[i].Sender < hops[best].Sender {
			best = i
			continue
		}
		if hops[i].Sender == hops[best].Sender && hops[i].Before(hops[best]) {
			best = i
		}
	}

	ids := make([]string, 0, len(hops))
	for i := 0; i < len(hops); i++ {
		ids = append(ids, hops[(best+i)%len(hops)].ID)
	}
	return strings.Join(ids, "|")
}

func rank(cycles []domain.Cycle, policy RankPolicy) {
	sort.SliceStable(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		if policy == RankHopsThenValue && a.HopCount() != b.HopCount() {
			return a.HopCount() < b.HopCount()
		}
		if cmp := a.TotalAmount().Cmp(b.TotalAmount()); cmp != 0 {
			return cmp > 0
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.Hops[0].Before(b.Hops[0])
	})
}
