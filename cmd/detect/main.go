package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nairav/amlscan/internal/config"
	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/export"
	"github.com/nairav/amlscan/internal/graph"
	"github.com/nairav/amlscan/internal/graphdb"
	"github.com/nairav/amlscan/internal/ingest"
	"github.com/nairav/amlscan/internal/logging"
	"github.com/nairav/amlscan/internal/service"
)

func main() {
	var (
		ledgerPath  = flag.String("ledger", "./data/ledger.csv", "Path to the CSV transaction ledger")
		outDir      = flag.String("out", "./out", "Directory the result tables are written to")
		windowStart = flag.String("window-start", "", "Optional RFC3339 lower bound on transaction timestamps")
		windowEnd   = flag.String("window-end", "", "Optional RFC3339 upper bound on transaction timestamps")
		exportGraph = flag.Bool("export-graph", false, "Also push results to the configured graph sink")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.ForComponent(cfg.Logging, "detect")

	window, err := parseWindow(*windowStart, *windowEnd)
	if err != nil {
		logger.Error("invalid time window", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := ingest.ReadFile(*ledgerPath)
	if err != nil {
		logger.Error("ledger ingest failed", "error", err)
		os.Exit(1)
	}
	if result.Skipped > 0 {
		logger.Warn("skipped malformed ledger records", "skipped", result.Skipped)
		for _, schemaErr := range result.SchemaErrors {
			logger.Debug("skipped record", "error", schemaErr)
		}
	}

	g, err := graph.Build(result.Transactions, graph.BuildOptions{Window: window})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			logger.Error("ledger contains no usable transactions", "path", *ledgerPath)
		} else {
			logger.Error("graph build failed", "error", err)
		}
		os.Exit(1)
	}

	svc := service.NewDetectionService(g, result.Skipped, cfg.Detection, cfg.Structuring, logger)
	report, err := svc.Run(ctx, service.RunParams{})
	if err != nil {
		logger.Error("detection run failed", "error", err)
		os.Exit(1)
	}

	if err := export.WriteReportFiles(report, *outDir); err != nil {
		logger.Error("writing result tables failed", "error", err)
		os.Exit(1)
	}
	logger.Info("result tables written",
		"dir", *outDir,
		"cycles", len(report.Cycles),
		"cycle_hops", len(report.CycleHops),
		"structuring_groups", len(report.Structuring))

	if *exportGraph {
		if err := pushToGraphSink(ctx, logger, cfg, report); err != nil {
			logger.Error("graph sink export failed", "error", err)
			os.Exit(1)
		}
	}
}

func pushToGraphSink(ctx context.Context, logger *slog.Logger, cfg config.Config, report domain.Report) error {
	client, err := graphdb.NewNeo4jClient(ctx, graphdb.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	return export.NewGraphSink(client, logger).Export(ctx, report)
}

func parseWindow(start, end string) (graph.Window, error) {
	var window graph.Window
	if start != "" {
		ts, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return graph.Window{}, fmt.Errorf("window-start: %w", err)
		}
		window.Start = ts
	}
	if end != "" {
		ts, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return graph.Window{}, fmt.Errorf("window-end: %w", err)
		}
		window.End = ts
	}
	return window, nil
}
