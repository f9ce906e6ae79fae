/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
// Every key is read as GRIMNIR_SEQ_<NAME> first and GRIMNIR_<NAME> second,
// so a sequencer sharing an environment with other Grimnir services can
// override only what differs.
type Config struct {
	Environment string
	LogLevel    string

	// Catalog store. An empty DSN means no database; commands then read
	// catalogs from files only.
	DBBackend DatabaseBackend
	DBDSN     string

	// Result cache. An empty address disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Event forwarding. An empty URL keeps events in-process.
	NATSURL   string
	NATSToken string

	// Object storage for s3:// catalog documents (MinIO, Spaces, etc. via endpoint)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Endpoint        string
	S3UsePathStyle    bool

	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
	MetricsBind       string // empty disables the scrape endpoint

	// Search defaults, overridable per command.
	MaxNodes      int64
	SearchTimeout time.Duration
	Workers       int
	FanoutDepth   int

	Bundle     string // built-in bundle name
	BundleFile string // YAML/JSON bundle definition, wins over Bundle
	Params     constraint.Params

	LegacyEnvWarnings []string
}

func keys(name string) []string {
	return []string{"GRIMNIR_SEQ_" + name, "GRIMNIR_" + name}
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	defaults := constraint.DefaultParams()

	cfg := &Config{
		Environment: getEnvAny(keys("ENV"), "development"),
		LogLevel:    getEnvAny(keys("LOG_LEVEL"), ""),

		DBBackend: DatabaseBackend(strings.ToLower(getEnvAny(keys("DB_BACKEND"), string(DatabaseSQLite)))),
		DBDSN:     getEnvAny(keys("DB_DSN"), ""),

		RedisAddr:     getEnvAny(keys("REDIS_ADDR"), ""),
		RedisPassword: getEnvAny(keys("REDIS_PASSWORD"), ""),
		RedisDB:       getEnvIntAny(keys("REDIS_DB"), 0),
		CacheTTL:      getEnvDurationAny(keys("CACHE_TTL"), time.Hour),

		NATSURL:   getEnvAny(keys("NATS_URL"), ""),
		NATSToken: getEnvAny(keys("NATS_TOKEN"), ""),

		S3AccessKeyID:     getEnvAny(append(keys("S3_ACCESS_KEY_ID"), "AWS_ACCESS_KEY_ID"), ""),
		S3SecretAccessKey: getEnvAny(append(keys("S3_SECRET_ACCESS_KEY"), "AWS_SECRET_ACCESS_KEY"), ""),
		S3Region:          getEnvAny(append(keys("S3_REGION"), "AWS_REGION"), "us-east-1"),
		S3Endpoint:        getEnvAny(keys("S3_ENDPOINT"), ""),
		S3UsePathStyle:    getEnvBoolAny(keys("S3_USE_PATH_STYLE"), false),

		TracingEnabled:    getEnvBoolAny(keys("TRACING_ENABLED"), false),
		OTLPEndpoint:      getEnvAny(keys("OTLP_ENDPOINT"), "localhost:4317"),
		TracingSampleRate: getEnvFloatAny(keys("TRACING_SAMPLE_RATE"), 1.0),
		MetricsBind:       getEnvAny(keys("METRICS_BIND"), ""),

		MaxNodes:      int64(getEnvIntAny(keys("MAX_NODES"), 2_000_000)),
		SearchTimeout: getEnvDurationAny(keys("SEARCH_TIMEOUT"), 30*time.Second),
		Workers:       getEnvIntAny(keys("WORKERS"), 1),
		FanoutDepth:   getEnvIntAny(keys("FANOUT_DEPTH"), 1),

		Bundle:     getEnvAny(keys("BUNDLE"), constraint.BundlePerceptualRandomness),
		BundleFile: getEnvAny(keys("BUNDLE_FILE"), ""),
		Params: constraint.Params{
			GenreRunBound:       getEnvIntAny(keys("GENRE_RUN_BOUND"), defaults.GenreRunBound),
			EnergyMaxJump:       getEnvIntAny(keys("ENERGY_MAX_JUMP"), defaults.EnergyMaxJump),
			PopularThreshold:    getEnvIntAny(keys("POPULAR_THRESHOLD"), defaults.PopularThreshold),
			LessPlayedThreshold: getEnvIntAny(keys("LESS_PLAYED_THRESHOLD"), defaults.LessPlayedThreshold),
			HighPlayThreshold:   getEnvIntAny(keys("HIGH_PLAY_THRESHOLD"), defaults.HighPlayThreshold),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

// Validate checks a loaded or hand-built configuration.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported database backend %q", c.DBBackend)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be within [0, 1], got %v", c.TracingSampleRate)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max nodes must be >= 0, got %d", c.MaxNodes)
	}
	if c.SearchTimeout < 0 {
		return fmt.Errorf("search timeout must be >= 0, got %s", c.SearchTimeout)
	}
	if c.Workers < 0 || c.FanoutDepth < 0 {
		return fmt.Errorf("workers and fan-out depth must be >= 0")
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if strings.EqualFold(c.Environment, "production") && c.TracingEnabled && c.OTLPEndpoint == "" {
		return fmt.Errorf("GRIMNIR_SEQ_OTLP_ENDPOINT must be set when tracing is enabled in production")
	}
	return nil
}

// HasDatabase reports whether a catalog store is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DBDSN != ""
}

// RequireDatabase fails with a hint when a command needs the store.
func (c *Config) RequireDatabase() error {
	if !c.HasDatabase() {
		return fmt.Errorf("GRIMNIR_SEQ_DB_DSN or GRIMNIR_DB_DSN must be provided")
	}
	return nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use GRIMNIR_SEQ_ENV (or GRIMNIR_ENV)",
		"TRACING_ENABLED":     "use GRIMNIR_SEQ_TRACING_ENABLED (or GRIMNIR_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use GRIMNIR_SEQ_OTLP_ENDPOINT (or GRIMNIR_OTLP_ENDPOINT)",
		"TRACING_SAMPLE_RATE": "use GRIMNIR_SEQ_TRACING_SAMPLE_RATE (or GRIMNIR_TRACING_SAMPLE_RATE)",
		"REDIS_ADDR":          "use GRIMNIR_SEQ_REDIS_ADDR (or GRIMNIR_REDIS_ADDR)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(strings.ReplaceAll(v, "_", "")); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("1500ms", "2m") or bare seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
