/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package comparator contrasts unconstrained orderings with perceptually
// constrained ones and manufactures counter-examples.
package comparator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

// DefaultStreakWindow is the run length Contrast reports on.
const DefaultStreakWindow = 2

// Generator is the subset of the sequencer engine the comparator drives.
type Generator interface {
	GenerateWithStats(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle, opts sequencer.Options) (sequencer.Result, error)
}

// Comparator runs the named bundles through one generator with shared
// parameters and search options.
type Comparator struct {
	gen       Generator
	validator *validator.Validator
	params    constraint.Params
	opts      sequencer.Options
	logger    zerolog.Logger
}

// New creates a comparator.
func New(gen Generator, v *validator.Validator, params constraint.Params, opts sequencer.Options, logger zerolog.Logger) *Comparator {
	return &Comparator{
		gen:       gen,
		validator: v,
		params:    params,
		opts:      opts,
		logger:    logger.With().Str("component", "comparator").Logger(),
	}
}

// WithSeed returns a copy that searches in the order drawn from seed.
func (c *Comparator) WithSeed(seed int64) *Comparator {
	cp := *c
	cp.opts = c.opts.WithSeed(seed)
	return &cp
}

// Params returns the perceptual parameters in use.
func (c *Comparator) Params() constraint.Params {
	return c.params
}

// TrulyRandom only forbids placing an item twice.
func (c *Comparator) TrulyRandom(ctx context.Context, cat *catalog.Catalog, length int) (sequence.Sequence, error) {
	res, err := c.run(ctx, cat, length, constraint.TrueRandomness())
	return res.Sequence, err
}

// PerceptuallyRandom applies the full perceptual bundle.
func (c *Comparator) PerceptuallyRandom(ctx context.Context, cat *catalog.Catalog, length int) (sequence.Sequence, error) {
	res, err := c.run(ctx, cat, length, constraint.PerceptualRandomness(c.params))
	return res.Sequence, err
}

// UserSatisfied applies the perceptual bundle plus high-play spacing.
func (c *Comparator) UserSatisfied(ctx context.Context, cat *catalog.Catalog, length int) (sequence.Sequence, error) {
	res, err := c.run(ctx, cat, length, constraint.UserSatisfied(c.params))
	return res.Sequence, err
}

// DetectStreak reports whether window contiguous positions share an artist.
func DetectStreak(seq sequence.Sequence, window int) bool {
	return constraint.HasArtistStreak(seq, window)
}

// Counterexample searches for a sequence that satisfies required while
// violating every constraint in negated.
func (c *Comparator) Counterexample(ctx context.Context, cat *catalog.Catalog, length int, required constraint.Bundle, negated ...constraint.Constraint) (sequence.Sequence, error) {
	elements := make([]constraint.Element, len(negated))
	for i, n := range negated {
		elements[i] = constraint.Not(n)
	}
	name := required.Name
	if name == "" {
		name = "custom"
	}
	bundle := required.With(elements...).Renamed(name + "+counterexample")

	res, err := c.run(ctx, cat, length, bundle)
	return res.Sequence, err
}

func (c *Comparator) run(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle) (sequencer.Result, error) {
	res, err := c.gen.GenerateWithStats(ctx, cat, length, bundle, c.opts)
	if err != nil {
		return res, fmt.Errorf("%s: %w", bundle.Name, err)
	}
	return res, nil
}
