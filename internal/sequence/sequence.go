/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequence implements the ordered, gap-free list of catalog items
// that constraints are evaluated against.
package sequence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
)

var (
	// ErrGap indicates a position is occupied while an earlier one is empty.
	ErrGap = errors.New("sequence has a gap")
	// ErrNegativePosition indicates a position below zero.
	ErrNegativePosition = errors.New("sequence position is negative")
)

// Sequence occupies positions 0..LastIndex() contiguously. The zero value
// is the empty sequence.
//
// A Sequence does not enforce pairwise distinctness of its items; that is
// the job of the uniqueness constraint, so callers can build and validate
// sequences that repeat an item.
type Sequence struct {
	items []catalog.Item
}

// New builds a sequence holding items at positions 0..len(items)-1.
func New(items ...catalog.Item) Sequence {
	return Sequence{items: append([]catalog.Item(nil), items...)}
}

// FromPositions builds a sequence from a sparse position map and rejects any
// gap. An empty map yields the empty sequence.
func FromPositions(positions map[int]catalog.Item) (Sequence, error) {
	if len(positions) == 0 {
		return Sequence{}, nil
	}

	keys := make([]int, 0, len(positions))
	for pos := range positions {
		if pos < 0 {
			return Sequence{}, fmt.Errorf("%w: %d", ErrNegativePosition, pos)
		}
		keys = append(keys, pos)
	}
	sort.Ints(keys)

	items := make([]catalog.Item, len(keys))
	for i, pos := range keys {
		if pos != i {
			return Sequence{}, fmt.Errorf("%w: position %d occupied but %d is empty", ErrGap, pos, i)
		}
		items[i] = positions[pos]
	}
	return Sequence{items: items}, nil
}

// FromIDs resolves item IDs against a catalog.
func FromIDs(cat *catalog.Catalog, ids []string) (Sequence, error) {
	items := make([]catalog.Item, 0, len(ids))
	for pos, id := range ids {
		item, ok := cat.Item(id)
		if !ok {
			return Sequence{}, fmt.Errorf("position %d: unknown item %q", pos, id)
		}
		items = append(items, item)
	}
	return Sequence{items: items}, nil
}

// LastIndex returns the last occupied position, or -1 when empty.
func (s Sequence) LastIndex() int {
	return len(s.items) - 1
}

// Len returns the number of occupied positions.
func (s Sequence) Len() int {
	return len(s.items)
}

// Empty reports whether no position is occupied.
func (s Sequence) Empty() bool {
	return len(s.items) == 0
}

// At returns the item at position i.
func (s Sequence) At(i int) catalog.Item {
	return s.items[i]
}

// Items returns a copy of the items in position order.
func (s Sequence) Items() []catalog.Item {
	return append([]catalog.Item(nil), s.items...)
}

// IDs returns the item IDs in position order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s.items))
	for i, item := range s.items {
		ids[i] = item.ID
	}
	return ids
}

// Prefix returns the sequence truncated to positions 0..n-1.
func (s Sequence) Prefix(n int) Sequence {
	if n > len(s.items) {
		n = len(s.items)
	}
	if n < 0 {
		n = 0
	}
	return Sequence{items: s.items[:n:n]}
}

// Append returns a new sequence with item placed at LastIndex()+1.
func (s Sequence) Append(item catalog.Item) Sequence {
	items := make([]catalog.Item, len(s.items), len(s.items)+1)
	copy(items, s.items)
	return Sequence{items: append(items, item)}
}

// View wraps a slice without copying. The sequencer uses it to evaluate
// constraints against its working prefix; the caller must not mutate the
// slice while the view is in use.
func View(items []catalog.Item) Sequence {
	return Sequence{items: items}
}
