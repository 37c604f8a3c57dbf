package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTP.Host != "0.0.0.0" || cfg.HTTP.Port != 8080 {
		t.Errorf("unexpected HTTP defaults: %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if cfg.Detection.MaxHops != 8 {
		t.Errorf("expected default max hops 8, got %d", cfg.Detection.MaxHops)
	}
	if cfg.Detection.AmountTolerancePct != 0.20 {
		t.Errorf("expected default tolerance 0.20, got %g", cfg.Detection.AmountTolerancePct)
	}
	if cfg.Detection.ExplorationCap != 250_000 {
		t.Errorf("expected default exploration cap 250000, got %d", cfg.Detection.ExplorationCap)
	}
	if cfg.Detection.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Detection.Workers)
	}

	if cfg.Structuring.MinSenders != 10 {
		t.Errorf("expected default min senders 10, got %d", cfg.Structuring.MinSenders)
	}
	if cfg.Structuring.WindowDuration != 720*time.Hour {
		t.Errorf("expected default window 720h, got %s", cfg.Structuring.WindowDuration)
	}
	if !cfg.Structuring.MaxPerTxn.Equal(decimal.NewFromInt(10_000)) {
		t.Errorf("expected default per-txn cap 10000, got %s", cfg.Structuring.MaxPerTxn)
	}
	if !cfg.Structuring.MinAggregate.Equal(decimal.NewFromInt(100_000)) {
		t.Errorf("expected default aggregate floor 100000, got %s", cfg.Structuring.MinAggregate)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DETECT_MAX_HOPS", "5")
	t.Setenv("DETECT_AMOUNT_TOLERANCE_PCT", "0.05")
	t.Setenv("DETECT_EXPLORATION_CAP", "5000")
	t.Setenv("DETECT_WORKERS", "8")
	t.Setenv("STRUCT_MIN_SENDERS", "4")
	t.Setenv("STRUCT_WINDOW_DURATION", "48h")
	t.Setenv("STRUCT_MAX_PER_TXN", "2500.50")
	t.Setenv("STRUCT_MIN_AGGREGATE", "50000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Logging.Format)
	}
	if cfg.Detection.MaxHops != 5 || cfg.Detection.AmountTolerancePct != 0.05 {
		t.Errorf("unexpected detection overrides: %+v", cfg.Detection)
	}
	if cfg.Detection.ExplorationCap != 5000 || cfg.Detection.Workers != 8 {
		t.Errorf("unexpected detection overrides: %+v", cfg.Detection)
	}
	if cfg.Structuring.MinSenders != 4 || cfg.Structuring.WindowDuration != 48*time.Hour {
		t.Errorf("unexpected structuring overrides: %+v", cfg.Structuring)
	}
	if !cfg.Structuring.MaxPerTxn.Equal(decimal.RequireFromString("2500.50")) {
		t.Errorf("expected per-txn cap 2500.50, got %s", cfg.Structuring.MaxPerTxn)
	}
	if !cfg.Structuring.MinAggregate.Equal(decimal.NewFromInt(50_000)) {
		t.Errorf("expected aggregate floor 50000, got %s", cfg.Structuring.MinAggregate)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port out of range", key: "SERVER_PORT", value: "70000"},
		{name: "port not a number", key: "SERVER_PORT", value: "http"},
		{name: "max hops too small", key: "DETECT_MAX_HOPS", value: "1"},
		{name: "tolerance above one", key: "DETECT_AMOUNT_TOLERANCE_PCT", value: "1.5"},
		{name: "negative tolerance", key: "DETECT_AMOUNT_TOLERANCE_PCT", value: "-0.1"},
		{name: "zero exploration cap", key: "DETECT_EXPLORATION_CAP", value: "0"},
		{name: "zero workers", key: "DETECT_WORKERS", value: "0"},
		{name: "min senders too small", key: "STRUCT_MIN_SENDERS", value: "1"},
		{name: "negative per-txn cap", key: "STRUCT_MAX_PER_TXN", value: "-10"},
		{name: "negative aggregate floor", key: "STRUCT_MIN_AGGREGATE", value: "-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoadIgnoresUnparseableOptionalValues(t *testing.T) {
	t.Setenv("STRUCT_WINDOW_DURATION", "someday")
	t.Setenv("DETECT_WORKERS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected fallback to defaults, got %v", err)
	}
	if cfg.Structuring.WindowDuration != 720*time.Hour {
		t.Errorf("expected default window, got %s", cfg.Structuring.WindowDuration)
	}
	if cfg.Detection.Workers != 4 {
		t.Errorf("expected default workers, got %d", cfg.Detection.Workers)
	}
}

func TestValidateDetectionConfig(t *testing.T) {
	valid := DetectionConfig{MaxHops: 8, AmountTolerancePct: 0.2, ExplorationCap: 1000, Workers: 4}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	invalid := valid
	invalid.MaxHops = 0
	if err := invalid.Validate(); err == nil {
		t.Error("expected error for zero max hops")
	}
}

func TestValidateStructuringConfig(t *testing.T) {
	valid := StructuringConfig{
		MinSenders:     10,
		WindowDuration: time.Hour,
		MaxPerTxn:      decimal.NewFromInt(100),
		MinAggregate:   decimal.NewFromInt(1000),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	invalid := valid
	invalid.WindowDuration = 0
	if err := invalid.Validate(); err == nil {
		t.Error("expected error for zero window")
	}
}
