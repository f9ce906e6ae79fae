/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package validator evaluates concrete sequences against constraint bundles.
package validator

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
)

// Result reports whether a sequence satisfies a bundle and, if not, which
// elements failed.
type Result struct {
	Bundle     string          `json:"bundle"`
	Pass       bool            `json:"pass"`
	Violations []constraint.ID `json:"violations"`
}

// Has reports whether id is among the violations.
func (r Result) Has(id constraint.ID) bool {
	for _, v := range r.Violations {
		if v == id {
			return true
		}
	}
	return false
}

// Validate evaluates every element of the bundle; it never stops at the
// first failure. Violations are de-duplicated and sorted.
func Validate(seq sequence.Sequence, bundle constraint.Bundle) Result {
	seen := make(map[constraint.ID]struct{})
	violations := []constraint.ID{}
	for _, element := range bundle.Elements {
		if element.Holds(seq) {
			continue
		}
		id := element.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		violations = append(violations, id)
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i] < violations[j] })

	return Result{
		Bundle:     bundle.Name,
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}

// Validator wraps Validate with logging.
type Validator struct {
	logger zerolog.Logger
}

// New creates a sequence validator.
func New(logger zerolog.Logger) *Validator {
	return &Validator{
		logger: logger.With().Str("component", "sequence_validator").Logger(),
	}
}

// Validate checks seq against bundle and logs rejected sequences at debug level.
func (v *Validator) Validate(seq sequence.Sequence, bundle constraint.Bundle) Result {
	result := Validate(seq, bundle)
	if !result.Pass {
		ids := make([]string, len(result.Violations))
		for i, id := range result.Violations {
			ids[i] = string(id)
		}
		v.logger.Debug().
			Str("bundle", bundle.Name).
			Int("length", seq.Len()).
			Strs("violations", ids).
			Msg("sequence rejected")
	}
	return result
}
