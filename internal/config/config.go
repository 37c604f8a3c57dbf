package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP        HTTPConfig
	Graph       GraphConfig
	Logging     LoggingConfig
	Detection   DetectionConfig
	Structuring StructuringConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the graph sink detection results are
// exported to (Neo4j/Neptune over Bolt). Optional; an empty URI disables the
// sink.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Colored       bool
	IncludeCaller bool
}

// DetectionConfig carries the cycle-search bounds. Every bound has an
// explicit default; an unset variable never disables a limit.
type DetectionConfig struct {
	MaxHops            int
	AmountTolerancePct float64
	ExplorationCap     int
	Workers            int
}

// StructuringConfig carries the fan-in aggregation thresholds.
type StructuringConfig struct {
	MinSenders     int
	WindowDuration time.Duration
	MaxPerTxn      decimal.Decimal
	MinAggregate   decimal.Decimal
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10

	defaultMaxHops        = 8
	defaultTolerancePct   = 0.20
	defaultExplorationCap = 250_000
	defaultWorkers        = 4

	defaultMinSenders     = 10
	defaultWindowDuration = 720 * time.Hour // 30 days
)

var (
	defaultMaxPerTxn    = decimal.NewFromInt(10_000)
	defaultMinAggregate = decimal.NewFromInt(100_000)
)

// Load reads configuration from environment variables, applying defaults.
// Threshold violations (negative hop bounds, out-of-range tolerance) are
// rejected here, before any search can start.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Detection: DetectionConfig{
			MaxHops:            parseIntWithDefault("DETECT_MAX_HOPS", defaultMaxHops),
			AmountTolerancePct: parseFloatWithDefault("DETECT_AMOUNT_TOLERANCE_PCT", defaultTolerancePct),
			ExplorationCap:     parseIntWithDefault("DETECT_EXPLORATION_CAP", defaultExplorationCap),
			Workers:            parseIntWithDefault("DETECT_WORKERS", defaultWorkers),
		},
		Structuring: StructuringConfig{
			MinSenders:     parseIntWithDefault("STRUCT_MIN_SENDERS", defaultMinSenders),
			WindowDuration: parseDurationWithDefault("STRUCT_WINDOW_DURATION", defaultWindowDuration),
			MaxPerTxn:      parseDecimalWithDefault("STRUCT_MAX_PER_TXN", defaultMaxPerTxn),
			MinAggregate:   parseDecimalWithDefault("STRUCT_MIN_AGGREGATE", defaultMinAggregate),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	if v := os.Getenv("SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.IdleTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_IDLE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	if err := cfg.Detection.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Structuring.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects detection bounds that would make a search either
// meaningless or unbounded.
func (c DetectionConfig) Validate() error {
	if c.MaxHops < 2 {
		return fmt.Errorf("DETECT_MAX_HOPS must be at least 2, got %d", c.MaxHops)
	}
	if c.AmountTolerancePct < 0 || c.AmountTolerancePct > 1 {
		return fmt.Errorf("DETECT_AMOUNT_TOLERANCE_PCT must be within [0,1], got %g", c.AmountTolerancePct)
	}
	if c.ExplorationCap <= 0 {
		return fmt.Errorf("DETECT_EXPLORATION_CAP must be positive, got %d", c.ExplorationCap)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("DETECT_WORKERS must be positive, got %d", c.Workers)
	}
	return nil
}

// Validate rejects structuring thresholds that cannot describe a fan-in.
func (c StructuringConfig) Validate() error {
	if c.MinSenders < 2 {
		return fmt.Errorf("STRUCT_MIN_SENDERS must be at least 2, got %d", c.MinSenders)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("STRUCT_WINDOW_DURATION must be positive, got %s", c.WindowDuration)
	}
	if c.MaxPerTxn.Sign() <= 0 {
		return fmt.Errorf("STRUCT_MAX_PER_TXN must be positive, got %s", c.MaxPerTxn)
	}
	if c.MinAggregate.Sign() <= 0 {
		return fmt.Errorf("STRUCT_MIN_AGGREGATE must be positive, got %s", c.MinAggregate)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if val, err := time.ParseDuration(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDecimalWithDefault(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if val, err := decimal.NewFromString(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
