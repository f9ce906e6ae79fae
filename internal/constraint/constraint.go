/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package constraint is the library of predicates a sequence can be held to,
// plus the bundles that group them.
package constraint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
)

// ID names a constraint.
type ID string

const (
	IDUniqueness           ID = "uniqueness"
	IDNoAdjacentSameArtist ID = "no_adjacent_same_artist"
	IDNoAdjacentSameAlbum  ID = "no_adjacent_same_album"
	IDGenreRunBound        ID = "genre_run_bound"
	IDEnergySmoothness     ID = "energy_smoothness"
	IDRecencyOrder         ID = "recency_order"
	IDExposureBalance      ID = "exposure_balance"
	IDArtistStreak         ID = "artist_streak"
	IDHighPlaySpacing      ID = "high_play_spacing"
)

// negatedPrefix marks the ID of a negated bundle element in violation sets.
const negatedPrefix = "not:"

// Negated returns the violation ID reported for a negated element.
func (id ID) Negated() ID {
	return ID(negatedPrefix + string(id))
}

// IsNegated reports whether id names a negated element.
func (id ID) IsNegated() bool {
	return strings.HasPrefix(string(id), negatedPrefix)
}

// Constraint is a pure predicate over a whole sequence.
type Constraint interface {
	ID() ID
	Holds(seq sequence.Sequence) bool
}

// Incremental is implemented by constraints whose violations can never be
// repaired by appending more items. PrefixViolated assumes prefix minus its
// last position already satisfies the constraint and only inspects the
// newly placed item.
type Incremental interface {
	Constraint
	PrefixViolated(prefix sequence.Sequence) bool
}

// Element is one member of a bundle, optionally negated.
type Element struct {
	Constraint Constraint
	Negated    bool
}

// Not wraps c as a negated bundle element.
func Not(c Constraint) Element {
	return Element{Constraint: c, Negated: true}
}

// Is wraps c as a positive bundle element.
func Is(c Constraint) Element {
	return Element{Constraint: c}
}

// ID returns the identifier reported when the element fails.
func (e Element) ID() ID {
	if e.Negated {
		return e.Constraint.ID().Negated()
	}
	return e.Constraint.ID()
}

// Holds evaluates the element against a complete sequence.
func (e Element) Holds(seq sequence.Sequence) bool {
	return e.Constraint.Holds(seq) != e.Negated
}

// Incremental returns the prefix checker when the element can prune partial
// sequences. Negated elements never can: a prefix satisfying the positive
// form may still break it later.
func (e Element) Incremental() (Incremental, bool) {
	if e.Negated {
		return nil, false
	}
	inc, ok := e.Constraint.(Incremental)
	return inc, ok
}

func (e Element) String() string {
	return string(e.ID())
}

// Bundle is a named set of elements a sequence must satisfy together.
type Bundle struct {
	Name     string
	Elements []Element
}

// NewBundle builds a bundle of positive constraints.
func NewBundle(name string, constraints ...Constraint) Bundle {
	b := Bundle{Name: name}
	for _, c := range constraints {
		b.Elements = append(b.Elements, Is(c))
	}
	return b
}

// With returns a copy of b with extra elements appended.
func (b Bundle) With(elements ...Element) Bundle {
	out := Bundle{Name: b.Name, Elements: make([]Element, 0, len(b.Elements)+len(elements))}
	out.Elements = append(out.Elements, b.Elements...)
	out.Elements = append(out.Elements, elements...)
	return out
}

// Renamed returns a copy of b under a different name.
func (b Bundle) Renamed(name string) Bundle {
	out := b.With()
	out.Name = name
	return out
}

// Split separates elements that can prune prefixes from those that can only
// be checked once the sequence is complete.
func (b Bundle) Split() (incremental []Incremental, deferred []Element) {
	for _, e := range b.Elements {
		if inc, ok := e.Incremental(); ok {
			incremental = append(incremental, inc)
			continue
		}
		deferred = append(deferred, e)
	}
	return incremental, deferred
}

// IDs returns the element IDs, sorted.
func (b Bundle) IDs() []ID {
	ids := make([]ID, 0, len(b.Elements))
	for _, e := range b.Elements {
		ids = append(ids, e.ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b Bundle) String() string {
	parts := make([]string, 0, len(b.Elements))
	for _, e := range b.Elements {
		parts = append(parts, e.String())
	}
	return fmt.Sprintf("%s{%s}", b.Name, strings.Join(parts, ","))
}
