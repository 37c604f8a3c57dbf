// Package service orchestrates one detection run end to end: graph in,
// report out. The CLI and the HTTP server both drive detection through it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/config"
	"github.com/nairav/amlscan/internal/detect"
	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
)

// ErrInvalidOptions marks a run rejected for threshold violations before any
// search started.
var ErrInvalidOptions = errors.New("invalid detection options")

// DetectionService runs both detectors over an immutable graph and assembles
// the export report.
type DetectionService struct {
	graph       *graph.Graph
	ingestSkips int
	detection   config.DetectionConfig
	structuring config.StructuringConfig
	logger      *slog.Logger
	nowFn       func() time.Time
}

// NewDetectionService constructs a DetectionService. ingestSkips carries the
// skipped-record count from the ingest boundary so the report covers the full
// pipeline's data-quality tally.
func NewDetectionService(g *graph.Graph, ingestSkips int, det config.DetectionConfig, str config.StructuringConfig, logger *slog.Logger) *DetectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionService{
		graph:       g,
		ingestSkips: ingestSkips,
		detection:   det,
		structuring: str,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *DetectionService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// RunParams are optional per-run overrides of the configured thresholds. Nil
// fields fall back to configuration; every override is re-validated before
// the run starts.
type RunParams struct {
	MaxHops        *int
	TolerancePct   *float64
	ExplorationCap *int
	MinSenders     *int
	WindowDuration *time.Duration
	MaxPerTxn      *decimal.Decimal
	MinAggregate   *decimal.Decimal
	Ranking        detect.RankPolicy
}

func (s *DetectionService) cycleOptions(params RunParams) detect.CycleOptions {
	opts := detect.CycleOptions{
		MaxHops:        s.detection.MaxHops,
		TolerancePct:   s.detection.AmountTolerancePct,
		ExplorationCap: s.detection.ExplorationCap,
	}
	if params.MaxHops != nil {
		opts.MaxHops = *params.MaxHops
	}
	if params.TolerancePct != nil {
		opts.TolerancePct = *params.TolerancePct
	}
	if params.ExplorationCap != nil {
		opts.ExplorationCap = *params.ExplorationCap
	}
	return opts
}

func (s *DetectionService) structuringOptions(params RunParams) detect.StructuringOptions {
	opts := detect.StructuringOptions{
		MinSenders:     s.structuring.MinSenders,
		WindowDuration: s.structuring.WindowDuration,
		MaxPerTxn:      s.structuring.MaxPerTxn,
		MinAggregate:   s.structuring.MinAggregate,
	}
	if params.MinSenders != nil {
		opts.MinSenders = *params.MinSenders
	}
	if params.WindowDuration != nil {
		opts.WindowDuration = *params.WindowDuration
	}
	if params.MaxPerTxn != nil {
		opts.MaxPerTxn = *params.MaxPerTxn
	}
	if params.MinAggregate != nil {
		opts.MinAggregate = *params.MinAggregate
	}
	return opts
}

// Run executes both detectors and assembles the report. Threshold violations
// are rejected before any search; context cancellation surfaces as an error
// once the partial work has been accounted for.
func (s *DetectionService) Run(ctx context.Context, params RunParams) (domain.Report, error) {
	cycleOpts := s.cycleOptions(params)
	if err := cycleOpts.Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	structOpts := s.structuringOptions(params)
	if err := structOpts.Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	postOpts := detect.PostProcessOptions{Ranking: params.Ranking}
	if err := postOpts.Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	started := s.nowFn()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	logger.Info("starting detection run",
		"accounts", s.graph.NodeCount(),
		"transactions", s.graph.EdgeCount(),
		"max_hops", cycleOpts.MaxHops,
		"exploration_cap", cycleOpts.ExplorationCap)

	runner := detect.NewRunner(s.detection.Workers, logger)
	cycleRun, err := runner.DetectAllCycles(ctx, s.graph, cycleOpts)
	if err != nil {
		return domain.Report{}, fmt.Errorf("cycle detection: %w", err)
	}

	summaries, hops := detect.Process(cycleRun.Cycles, postOpts)

	groups, err := detect.DetectStructuring(ctx, s.graph, structOpts)
	if err != nil {
		return domain.Report{}, fmt.Errorf("structuring detection: %w", err)
	}

	groupSummaries := make([]domain.StructuringSummary, 0, len(groups))
	for _, group := range groups {
		groupSummaries = append(groupSummaries, group.Summary())
	}

	report := domain.Report{
		RunID:            runID,
		GeneratedAt:      started,
		Duration:         s.nowFn().Sub(started),
		Accounts:         s.graph.NodeCount(),
		Transactions:     s.graph.EdgeCount(),
		SkippedRecords:   s.ingestSkips + s.graph.SkippedRecords(),
		TruncatedOrigins: cycleRun.TruncatedOrigins,
		CycleHops:        hops,
		Cycles:           summaries,
		Structuring:      groups,
		StructuringStats: groupSummaries,
	}

	logger.Info("detection run finished",
		"cycles", len(summaries),
		"structuring_groups", len(groups),
		"truncated_origins", cycleRun.TruncatedOrigins,
		"frames_expanded", cycleRun.FramesExpanded,
		"duration", report.Duration)
	return report, nil
}

// GraphStats reports the dimensions of the loaded graph.
func (s *DetectionService) GraphStats() (accounts, transactions, skipped int) {
	return s.graph.NodeCount(), s.graph.EdgeCount(), s.ingestSkips + s.graph.SkippedRecords()
}
