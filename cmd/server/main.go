package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nairav/amlscan/internal/config"
	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
	"github.com/nairav/amlscan/internal/graphdb"
	"github.com/nairav/amlscan/internal/ingest"
	"github.com/nairav/amlscan/internal/logging"
	"github.com/nairav/amlscan/internal/server"
	"github.com/nairav/amlscan/internal/service"
)

func main() {
	ledgerPath := flag.String("ledger", "./data/ledger.csv", "Path to the CSV transaction ledger served by this instance")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.ForComponent(cfg.Logging, "server")

	result, err := ingest.ReadFile(*ledgerPath)
	if err != nil {
		logger.Error("ledger ingest failed", "error", err)
		os.Exit(1)
	}
	if result.Skipped > 0 {
		logger.Warn("skipped malformed ledger records", "skipped", result.Skipped)
	}

	g, err := graph.Build(result.Transactions, graph.BuildOptions{})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			logger.Error("ledger contains no usable transactions", "path", *ledgerPath)
		} else {
			logger.Error("graph build failed", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("transaction graph loaded",
		"accounts", g.NodeCount(),
		"transactions", g.EdgeCount(),
		"skipped_records", result.Skipped+g.SkippedRecords())

	sinkClient, err := buildSinkClient(ctx, cfg)
	if err != nil && !errors.Is(err, graphdb.ErrMissingURI) {
		logger.Error("failed to create graph sink client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sinkClient != nil {
			if err := sinkClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph sink client failed", "error", err)
			}
		}
	}()

	detectionService := service.NewDetectionService(g, result.Skipped, cfg.Detection, cfg.Structuring, logger)

	var metrics *server.Metrics
	var metricsHandler http.Handler
	if cfg.HTTP.MetricsEnabled {
		metrics = server.NewMetrics()
		metricsHandler = metrics.Handler()
	}

	apiHandlers := server.NewAPIHandlers(logger, detectionService, metrics)
	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.SinkHealthService{Client: sinkClient},
		API:              apiHandlers,
		Metrics:          metricsHandler,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildSinkClient(ctx context.Context, cfg config.Config) (graphdb.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graphdb.ErrMissingURI
	}
	return graphdb.NewNeo4jClient(ctx, graphdb.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
