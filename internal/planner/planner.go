/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner serves generation requests against stored catalogs,
// recording each run and caching found sequences.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/cache"
	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/catalogstore"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/events"
	"github.com/friendsincode/grimnir_sequencer/internal/models"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/telemetry"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

// Request asks for one sequence.
type Request struct {
	Catalog string // catalog ID or name
	Length  int
	Bundle  string // built-in or registered bundle name; empty means perceptual
	Seed    *int64
}

// Plan is the outcome of a successful request.
type Plan struct {
	RunID       string            `json:"run_id"`
	CatalogID   string            `json:"catalog_id"`
	CatalogName string            `json:"catalog_name"`
	Bundle      string            `json:"bundle"`
	Sequence    sequence.Sequence `json:"-"`
	ItemIDs     []string          `json:"item_ids"`
	Stats       sequencer.Stats   `json:"stats"`
	Validation  validator.Result  `json:"validation"`
	CacheHit    bool              `json:"cache_hit"`
}

// Service plans sequences. It is safe for concurrent use.
type Service struct {
	store     *catalogstore.Store
	cache     *cache.Cache
	engine    *sequencer.Engine
	validator *validator.Validator
	bus       *events.Bus
	params    constraint.Params
	opts      sequencer.Options
	logger    zerolog.Logger

	mu      sync.RWMutex
	bundles map[string]constraint.Bundle
}

// New creates a planner. A nil cache disables result caching.
func New(store *catalogstore.Store, c *cache.Cache, engine *sequencer.Engine, v *validator.Validator, bus *events.Bus, params constraint.Params, opts sequencer.Options, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		cache:     c,
		engine:    engine,
		validator: v,
		bus:       bus,
		params:    params,
		opts:      opts,
		logger:    logger.With().Str("component", "planner").Logger(),
		bundles:   make(map[string]constraint.Bundle),
	}
}

// Register makes a compiled bundle available by name, shadowing a built-in
// of the same name.
func (s *Service) Register(bundle constraint.Bundle) error {
	if bundle.Name == "" {
		return fmt.Errorf("bundle has no name")
	}
	s.mu.Lock()
	s.bundles[strings.ToLower(bundle.Name)] = bundle
	s.mu.Unlock()
	s.logger.Info().Str("bundle", bundle.Name).Str("elements", bundle.String()).Msg("bundle registered")
	return nil
}

// RegisterFile compiles and registers a bundle definition file.
func (s *Service) RegisterFile(path string) (constraint.Bundle, error) {
	def, err := constraint.LoadDefinition(path)
	if err != nil {
		return constraint.Bundle{}, err
	}
	bundle, err := def.Compile(s.params)
	if err != nil {
		return constraint.Bundle{}, fmt.Errorf("%s: %w", path, err)
	}
	return bundle, s.Register(bundle)
}

// Bundle resolves a registered or built-in bundle.
func (s *Service) Bundle(name string) (constraint.Bundle, error) {
	s.mu.RLock()
	bundle, ok := s.bundles[strings.ToLower(strings.TrimSpace(name))]
	s.mu.RUnlock()
	if ok {
		return bundle, nil
	}
	return constraint.Named(name, s.params)
}

// Import stores a catalog document. A changed catalog drops its cached
// results.
func (s *Service) Import(ctx context.Context, doc *catalogstore.Document, source string) (models.Catalog, error) {
	record, changed, err := s.store.Import(ctx, doc, source)
	if err != nil {
		return record, err
	}
	if changed {
		if err := s.cache.InvalidateCatalog(ctx, record.ID); err != nil {
			s.logger.Warn().Err(err).Str("catalog_id", record.ID).Msg("failed to invalidate cached results")
		}
	}
	s.publish(events.EventCatalogImported, events.Payload{
		"catalog_id": record.ID,
		"name":       record.Name,
		"items":      record.ItemCount,
		"changed":    changed,
	})
	return record, nil
}

// Generate serves a request. Every attempt that reaches a stored catalog is
// recorded as a run, failed ones included.
func (s *Service) Generate(ctx context.Context, req Request) (*Plan, error) {
	ctx, span := telemetry.StartSpan(ctx, "planner", "Generate")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"planner.catalog": req.Catalog,
		"planner.length":  req.Length,
		"planner.bundle":  req.Bundle,
	})

	bundle, err := s.Bundle(req.Bundle)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cat, record, err := s.store.Load(ctx, req.Catalog)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cacheBundle := s.cacheName(bundle)
	if plan, ok := s.fromCache(ctx, cat, record, bundle, cacheBundle, req); ok {
		return plan, nil
	}

	opts := s.opts
	if req.Seed != nil {
		opts = opts.WithSeed(*req.Seed)
	}
	res, genErr := s.engine.GenerateWithStats(ctx, cat, req.Length, bundle, opts)

	run := &models.SequenceRun{
		ID:         uuid.NewString(),
		CatalogID:  record.ID,
		Bundle:     bundle.Name,
		Length:     req.Length,
		Seed:       req.Seed,
		Workers:    opts.Workers,
		Outcome:    models.RunOutcome(res.Stats.Outcome),
		Nodes:      res.Stats.Nodes,
		Backtracks: res.Stats.Backtracks,
		ElapsedMS:  res.Stats.Elapsed.Milliseconds(),
		ItemIDs:    models.StringList(res.Sequence.IDs()),
	}
	if genErr != nil {
		run.Error = genErr.Error()
	}
	// Recording must survive a cancelled request context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.RecordRun(recordCtx, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to record run")
	}

	payload := events.Payload{
		"run_id":     run.ID,
		"catalog_id": record.ID,
		"bundle":     bundle.Name,
		"length":     req.Length,
		"nodes":      res.Stats.Nodes,
	}
	if genErr != nil {
		payload["error"] = genErr.Error()
		s.publish(failureEvent(genErr), payload)
		telemetry.RecordError(span, genErr)
		return nil, genErr
	}

	payload["item_ids"] = res.Sequence.IDs()
	s.publish(events.EventSequenceGenerated, payload)

	if err := s.cache.SetSequence(ctx, &cache.CachedSequence{
		RunID:     run.ID,
		CatalogID: record.ID,
		Bundle:    cacheBundle,
		Length:    req.Length,
		Seed:      req.Seed,
		ItemIDs:   res.Sequence.IDs(),
		Nodes:     res.Stats.Nodes,
	}); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to cache sequence")
	}

	return &Plan{
		RunID:       run.ID,
		CatalogID:   record.ID,
		CatalogName: record.Name,
		Bundle:      bundle.Name,
		Sequence:    res.Sequence,
		ItemIDs:     res.Sequence.IDs(),
		Stats:       res.Stats,
		Validation:  s.validator.Validate(res.Sequence, bundle),
	}, nil
}

// fromCache serves a cached result after checking it still fits the stored
// catalog and the bundle.
func (s *Service) fromCache(ctx context.Context, cat *catalog.Catalog, record models.Catalog, bundle constraint.Bundle, cacheBundle string, req Request) (*Plan, bool) {
	cached, ok := s.cache.GetSequence(ctx, record.ID, cacheBundle, req.Length, req.Seed)
	if !ok {
		return nil, false
	}
	seq, err := sequence.FromIDs(cat, cached.ItemIDs)
	if err != nil || seq.Len() != req.Length {
		s.logger.Debug().Err(err).Str("run_id", cached.RunID).Msg("discarding stale cached sequence")
		return nil, false
	}
	result := s.validator.Validate(seq, bundle)
	if !result.Pass {
		return nil, false
	}

	run := &models.SequenceRun{
		ID:        uuid.NewString(),
		CatalogID: record.ID,
		Bundle:    bundle.Name,
		Length:    req.Length,
		Seed:      req.Seed,
		Workers:   s.opts.Workers,
		Outcome:   models.RunFound,
		ItemIDs:   models.StringList(seq.IDs()),
		CacheHit:  true,
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to record run")
	}
	s.publish(events.EventSequenceGenerated, events.Payload{
		"run_id":     run.ID,
		"catalog_id": record.ID,
		"bundle":     bundle.Name,
		"length":     req.Length,
		"item_ids":   seq.IDs(),
		"cache_hit":  true,
	})

	return &Plan{
		RunID:       run.ID,
		CatalogID:   record.ID,
		CatalogName: record.Name,
		Bundle:      bundle.Name,
		Sequence:    seq,
		ItemIDs:     seq.IDs(),
		Stats:       sequencer.Stats{Outcome: sequencer.OutcomeFound},
		Validation:  result,
		CacheHit:    true,
	}, true
}

// Runs lists recent runs of a catalog.
func (s *Service) Runs(ctx context.Context, catalogRef string, limit int) ([]models.SequenceRun, error) {
	record, err := s.store.Find(ctx, catalogRef)
	if err != nil {
		return nil, err
	}
	return s.store.Runs(ctx, record.ID, limit)
}

// cacheName keys cached results by bundle and parameters, so processes
// sharing a cache with different parameters never see each other's results.
func (s *Service) cacheName(bundle constraint.Bundle) string {
	p := s.params
	return fmt.Sprintf("%s@%d.%d.%d.%d.%d", bundle.Name,
		p.GenreRunBound, p.EnergyMaxJump, p.PopularThreshold, p.LessPlayedThreshold, p.HighPlayThreshold)
}

func (s *Service) publish(eventType events.EventType, payload events.Payload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, payload)
}

func failureEvent(err error) events.EventType {
	switch {
	case errors.Is(err, sequencer.ErrUnsatisfiable):
		return events.EventSequenceUnsatisfiable
	case errors.Is(err, sequencer.ErrTimeout):
		return events.EventSequenceTimeout
	default:
		return events.EventSequenceFailed
	}
}
