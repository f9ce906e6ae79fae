/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequencer searches a catalog for a sequence satisfying a
// constraint bundle.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/telemetry"
)

var (
	// ErrUnsatisfiable means the search space was exhausted without a match.
	ErrUnsatisfiable = errors.New("no sequence satisfies the constraint bundle")
	// ErrTimeout means the node or time budget ran out first. It says nothing
	// about whether a sequence exists.
	ErrTimeout = errors.New("search budget exhausted before a result was found")
	// ErrInvalidLength rejects lengths outside 0..catalog size.
	ErrInvalidLength = errors.New("invalid sequence length")
	// ErrNoCatalog rejects a search without a catalog.
	ErrNoCatalog = errors.New("no catalog to sequence")
)

// Outcome labels a finished search.
type Outcome string

const (
	OutcomeFound         Outcome = "found"
	OutcomeUnsatisfiable Outcome = "unsatisfiable"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeRejected      Outcome = "rejected"
)

// Options bounds and steers a search.
type Options struct {
	MaxNodes    int64         // 0 means unlimited
	Timeout     time.Duration // 0 means unlimited
	Seed        *int64        // nil means catalog order
	Workers     int           // <= 1 searches on the calling goroutine
	FanoutDepth int           // prefix depth handed to each worker, default 1
}

// WithSeed returns a copy of o using seeded candidate order.
func (o Options) WithSeed(seed int64) Options {
	o.Seed = &seed
	return o
}

// Stats describes the work a search did.
type Stats struct {
	Outcome    Outcome       `json:"outcome"`
	Nodes      int64         `json:"nodes"`
	Backtracks int64         `json:"backtracks"`
	Branches   int           `json:"branches"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result pairs the found sequence with search statistics.
type Result struct {
	Sequence sequence.Sequence
	Stats    Stats
}

// Engine runs backtracking searches. It holds no per-search state and is
// safe for concurrent use.
type Engine struct {
	logger zerolog.Logger
}

// New creates a sequencer engine.
func New(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "sequencer").Logger()}
}

// Generate finds a sequence of the requested length satisfying bundle.
func (e *Engine) Generate(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle, opts Options) (sequence.Sequence, error) {
	res, err := e.GenerateWithStats(ctx, cat, length, bundle, opts)
	return res.Sequence, err
}

// GenerateWithStats is Generate plus search statistics, which are filled in
// for failed searches too.
func (e *Engine) GenerateWithStats(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle, opts Options) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "sequencer", "Generate")
	defer span.End()
	catalogSize := 0
	if cat != nil {
		catalogSize = cat.Len()
	}
	telemetry.AddSpanAttributes(span, map[string]any{
		"sequencer.bundle":       bundle.Name,
		"sequencer.length":       length,
		"sequencer.catalog_size": catalogSize,
		"sequencer.workers":      opts.Workers,
	})

	start := time.Now()
	res, err := e.generate(ctx, cat, length, bundle, opts)
	res.Stats.Elapsed = time.Since(start)

	observeSearch(bundle.Name, res.Stats)
	telemetry.AddSpanAttributes(span, map[string]any{
		"sequencer.outcome":    string(res.Stats.Outcome),
		"sequencer.nodes":      res.Stats.Nodes,
		"sequencer.backtracks": res.Stats.Backtracks,
	})
	telemetry.RecordError(span, err)

	event := e.logger.Debug()
	if err != nil && res.Stats.Outcome != OutcomeUnsatisfiable {
		event = e.logger.Warn().Err(err)
	}
	event.
		Str("bundle", bundle.Name).
		Int("length", length).
		Str("outcome", string(res.Stats.Outcome)).
		Int64("nodes", res.Stats.Nodes).
		Int64("backtracks", res.Stats.Backtracks).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("sequence search finished")

	return res, err
}

func (e *Engine) generate(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle, opts Options) (Result, error) {
	if cat == nil {
		return Result{Stats: Stats{Outcome: OutcomeRejected}}, fmt.Errorf("generate: %w", ErrNoCatalog)
	}
	if err := cat.Validate(); err != nil {
		return Result{Stats: Stats{Outcome: OutcomeRejected}}, fmt.Errorf("validate catalog: %w", err)
	}
	if length < 0 || length > cat.Len() {
		return Result{Stats: Stats{Outcome: OutcomeRejected}}, fmt.Errorf("%w: %d (catalog has %d items)", ErrInvalidLength, length, cat.Len())
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	b := &budget{ctx: ctx, maxNodes: opts.MaxNodes}
	items := cat.Items()

	if opts.Workers <= 1 {
		s := newSearcher(items, length, bundle, rngFor(opts.Seed, 0), b)
		found, err := s.run(nil)
		stats := Stats{Nodes: b.nodes.Load(), Backtracks: s.backtracks, Branches: 1}
		return finish(ctx, found, err, stats)
	}

	return e.fanOut(ctx, items, length, bundle, opts, b)
}

// fanOut hands disjoint prefixes to a bounded worker pool. The first worker
// to complete a sequence cancels the rest.
func (e *Engine) fanOut(ctx context.Context, items []catalog.Item, length int, bundle constraint.Bundle, opts Options, b *budget) (Result, error) {
	depth := opts.FanoutDepth
	if depth < 1 {
		depth = 1
	}
	if depth > length {
		depth = length
	}

	planner := newSearcher(items, length, bundle, rngFor(opts.Seed, 0), b)
	prefixes, err := planner.prefixes(depth)
	if err != nil {
		return finish(ctx, nil, err, Stats{Nodes: b.nodes.Load()})
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	workerBudget := &budget{ctx: searchCtx, maxNodes: opts.MaxNodes}
	workerBudget.nodes.Store(b.nodes.Load())

	var (
		mu         sync.Mutex
		winner     []catalog.Item
		budgetErr  error
		backtracks int64
	)

	g, gctx := errgroup.WithContext(searchCtx)
	g.SetLimit(opts.Workers)

	for i, prefix := range prefixes {
		if gctx.Err() != nil {
			break
		}
		i, prefix := i, prefix
		g.Go(func() error {
			s := newSearcher(items, length, bundle, rngFor(opts.Seed, int64(i)+1), workerBudget)
			found, err := s.run(prefix)

			mu.Lock()
			defer mu.Unlock()
			backtracks += s.backtracks
			switch {
			case err == nil:
				if winner == nil {
					winner = found
					cancel()
				}
			case errors.Is(err, errExhausted):
			case errors.Is(err, context.Canceled) && ctx.Err() == nil:
				// Another worker won.
			default:
				if budgetErr == nil {
					budgetErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{Nodes: workerBudget.nodes.Load(), Backtracks: backtracks, Branches: len(prefixes)}
	if winner != nil {
		return finish(ctx, winner, nil, stats)
	}
	if budgetErr != nil {
		return finish(ctx, nil, budgetErr, stats)
	}
	if ctx.Err() != nil {
		return finish(ctx, nil, ctx.Err(), stats)
	}
	return finish(ctx, nil, errExhausted, stats)
}

// finish maps internal search errors onto the public taxonomy.
func finish(ctx context.Context, found []catalog.Item, err error, stats Stats) (Result, error) {
	switch {
	case err == nil:
		stats.Outcome = OutcomeFound
		return Result{Sequence: sequence.New(found...), Stats: stats}, nil
	case errors.Is(err, errExhausted):
		stats.Outcome = OutcomeUnsatisfiable
		return Result{Stats: stats}, ErrUnsatisfiable
	case errors.Is(err, errNodeBudget):
		stats.Outcome = OutcomeTimeout
		return Result{Stats: stats}, fmt.Errorf("%w: node limit reached after %d nodes", ErrTimeout, stats.Nodes)
	case errors.Is(err, context.DeadlineExceeded):
		stats.Outcome = OutcomeTimeout
		return Result{Stats: stats}, fmt.Errorf("%w: deadline reached after %d nodes", ErrTimeout, stats.Nodes)
	default:
		stats.Outcome = OutcomeCancelled
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Result{Stats: stats}, fmt.Errorf("search cancelled: %w", err)
	}
}

func rngFor(seed *int64, stream int64) *rand.Rand {
	if seed == nil {
		return nil
	}
	return rand.New(rand.NewSource(*seed + stream))
}
