package detect

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
)

// Runner fans cycle searches out across a bounded worker pool. The graph is
// immutable once built, and each search owns its path and visited set, so the
// per-origin searches share nothing and need no locking.
type Runner struct {
	workers int
	logger  *slog.Logger
}

// NewRunner creates a Runner with the provided concurrency.
func NewRunner(workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{workers: workers, logger: logger}
}

// AllCyclesResult aggregates the per-origin searches of one run.
type AllCyclesResult struct {
	// Cycles is the raw detector output across all origins; rotations of the
	// same loop found from different origins are still present and collapse
	// in post-processing.
	Cycles []domain.Cycle
	// TruncatedOrigins counts origins whose search hit the exploration cap.
	TruncatedOrigins int
	// FramesExpanded sums expanded search frames across all origins.
	FramesExpanded int
}

// DetectAllCycles runs one bounded search per sender account. On context
// cancellation it returns the results gathered so far together with the
// context error.
func (r *Runner) DetectAllCycles(ctx context.Context, g *graph.Graph, opts CycleOptions) (AllCyclesResult, error) {
	if err := opts.Validate(); err != nil {
		return AllCyclesResult{}, err
	}

	origins := g.Senders()
	sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })

	results := make([]CycleResult, len(origins))
	indexCh := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			res, err := DetectCycles(ctx, g, origins[idx], opts)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				// Options were validated up front; per-origin errors beyond
				// cancellation do not occur, but log rather than drop if the
				// detector ever grows one.
				r.logger.Error("cycle search failed", "origin", origins[idx], "error", err)
			}
			results[idx] = res
		}
	}

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go worker()
	}

feed:
	for i := range origins {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexCh)
	wg.Wait()

	var aggregate AllCyclesResult
	for _, res := range results {
		aggregate.Cycles = append(aggregate.Cycles, res.Cycles...)
		aggregate.FramesExpanded += res.FramesExpanded
		if res.Truncated {
			aggregate.TruncatedOrigins++
		}
	}

	if err := ctx.Err(); err != nil {
		return aggregate, err
	}
	return aggregate, nil
}
