package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/nairav/amlscan/internal/config"
	"github.com/nairav/amlscan/internal/generator"
	"github.com/nairav/amlscan/internal/logging"
)

func main() {
	defaults := generator.DefaultConfig()
	var (
		outPath    = flag.String("out", "./data/ledger.csv", "Path the generated ledger is written to")
		accounts   = flag.Int("accounts", defaults.NumAccounts, "Number of background accounts")
		background = flag.Int("background", defaults.NumBackground, "Number of background transactions")
		cycles     = flag.Int("cycles", defaults.NumCycles, "Number of planted laundering cycles")
		rings      = flag.Int("rings", defaults.NumStructuringRings, "Number of planted structuring rings")
		seed       = flag.Int64("seed", 0, "Random seed (0 picks a time-based seed)")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.ForComponent(cfg.Logging, "datagen")

	genCfg := defaults
	genCfg.NumAccounts = *accounts
	genCfg.NumBackground = *background
	genCfg.NumCycles = *cycles
	genCfg.NumStructuringRings = *rings
	genCfg.Seed = *seed

	dataset, err := generator.New(genCfg).Generate(context.Background())
	if err != nil {
		logger.Error("generation failed", "error", err)
		os.Exit(1)
	}

	if err := generator.WriteLedger(dataset, *outPath); err != nil {
		logger.Error("writing ledger failed", "error", err)
		os.Exit(1)
	}

	logger.Info("synthetic ledger written",
		"path", *outPath,
		"transactions", len(dataset.Transactions),
		"planted_cycles", len(dataset.PlantedCycleOrigins),
		"planted_rings", len(dataset.PlantedRingReceivers))
}
