/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_sequencer/internal/cache"
	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/catalogstore"
	"github.com/friendsincode/grimnir_sequencer/internal/config"
	"github.com/friendsincode/grimnir_sequencer/internal/db"
	"github.com/friendsincode/grimnir_sequencer/internal/eventbus"
	"github.com/friendsincode/grimnir_sequencer/internal/events"
	"github.com/friendsincode/grimnir_sequencer/internal/logging"
	"github.com/friendsincode/grimnir_sequencer/internal/planner"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/storage"
	"github.com/friendsincode/grimnir_sequencer/internal/telemetry"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
	"github.com/friendsincode/grimnir_sequencer/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "grimnirseq",
	Short: "Grimnir Sequencer - perceptually random playlist ordering",
	Long: "Grimnir Sequencer orders a music catalog so that it feels random to a listener: " +
		"no back-to-back artists or albums, smooth energy, recent tracks late and a balanced mix of popular and rarely played items.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

// Search flags shared by commands that run the sequencer.
var (
	flagWorkers  int
	flagMaxNodes int64
	flagTimeout  time.Duration
	flagJSON     bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagWorkers, "workers", 1, "Parallel search workers (overrides GRIMNIR_SEQ_WORKERS)")
	cmd.Flags().Int64Var(&flagMaxNodes, "max-nodes", 0, "Node budget, 0 for unlimited (overrides GRIMNIR_SEQ_MAX_NODES)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Wall clock budget, 0 for unlimited (overrides GRIMNIR_SEQ_SEARCH_TIMEOUT)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.SetupWithWriter(cfg.Environment, cfg.LogLevel, os.Stderr)
	for _, warning := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warning)
	}
	return nil
}

// searchOptions applies command line overrides to the configured budgets.
func searchOptions(cmd *cobra.Command) sequencer.Options {
	opts := sequencer.Options{
		MaxNodes:    cfg.MaxNodes,
		Timeout:     cfg.SearchTimeout,
		Workers:     cfg.Workers,
		FanoutDepth: cfg.FanoutDepth,
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = flagWorkers
	}
	if cmd.Flags().Changed("max-nodes") {
		opts.MaxNodes = flagMaxNodes
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = flagTimeout
	}
	return opts
}

// services bundles everything a command may need. Optional pieces are nil
// when not configured.
type services struct {
	db        *gorm.DB
	store     *catalogstore.Store
	cache     *cache.Cache
	bus       *events.Bus
	forwarder *eventbus.Forwarder
	planner   *planner.Service
	tracer    *telemetry.TracerProvider
	metrics   *telemetry.MetricsServer
	objects   storage.ObjectStore
}

// bootstrap initializes tracing, the metrics endpoint and, when a DSN is
// configured, the catalog store with its cache and event forwarding.
func bootstrap(cmd *cobra.Command, needDatabase bool) (*services, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	svc := &services{bus: events.NewBus()}

	tracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "grimnir-sequencer",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	svc.tracer = tracer

	if cfg.MetricsBind != "" {
		ms, err := telemetry.StartMetricsServer(cfg.MetricsBind, logger)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.metrics = ms
	}

	if !cfg.HasDatabase() {
		if needDatabase {
			svc.Close()
			return nil, cfg.RequireDatabase()
		}
		return svc, nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	svc.db = database
	if err := db.Migrate(database); err != nil {
		svc.Close()
		return nil, err
	}
	svc.store = catalogstore.New(database, logger)

	if cfg.RedisAddr != "" {
		c, err := cache.New(cache.Config{
			RedisAddr:      cfg.RedisAddr,
			RedisPassword:  cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			ResultTTL:      cfg.CacheTTL,
			DisableOnError: true,
		}, logger)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("initialize cache: %w", err)
		}
		svc.cache = c
	} else {
		svc.cache = cache.NewDisabled(logger)
	}

	if cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Token = cfg.NATSToken
		fwd, err := eventbus.Connect(natsCfg, svc.bus, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events stay in-process")
		} else {
			svc.forwarder = fwd
		}
	}

	svc.planner = planner.New(svc.store, svc.cache, sequencer.New(logger), validator.New(logger), svc.bus, cfg.Params, searchOptions(cmd), logger)
	if cfg.BundleFile != "" {
		if _, err := svc.planner.RegisterFile(cfg.BundleFile); err != nil {
			svc.Close()
			return nil, fmt.Errorf("load bundle file: %w", err)
		}
	}
	return svc, nil
}

// Close releases everything bootstrap opened, in reverse order.
func (s *services) Close() {
	if err := s.forwarder.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close event forwarder")
	}
	if err := s.cache.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close cache")
	}
	if s.db != nil {
		if err := db.Close(s.db); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.metrics.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to stop metrics server")
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown tracer provider")
	}
}

// loadDocument reads a catalog document from a local file or an s3:// URI.
func (s *services) loadDocument(ctx context.Context, ref string) (*catalogstore.Document, error) {
	if !storage.IsObjectURI(ref) {
		return catalogstore.LoadFile(ref)
	}
	if s.objects == nil {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		s.objects = store
	}
	return catalogstore.LoadObject(ctx, s.objects, ref)
}

// openCatalog reads ref as a catalog document when it is a file or object
// URI and otherwise looks it up in the store.
func (s *services) openCatalog(ctx context.Context, ref string) (*catalog.Catalog, string, error) {
	if isDocumentRef(ref) {
		doc, err := s.loadDocument(ctx, ref)
		if err != nil {
			return nil, "", err
		}
		cat, err := doc.Catalog()
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", ref, err)
		}
		return cat, doc.Name, nil
	}

	if s.store == nil {
		return nil, "", fmt.Errorf("%s is not a file and no catalog store is configured", ref)
	}
	cat, record, err := s.store.Load(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	return cat, record.Name, nil
}

func isDocumentRef(ref string) bool {
	return storage.IsObjectURI(ref) || isFile(ref)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
