/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencer

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
)

var (
	errExhausted  = errors.New("branch exhausted")
	errNodeBudget = errors.New("node budget exhausted")
)

// budget is shared by every worker of one Generate call.
type budget struct {
	ctx      context.Context
	maxNodes int64
	nodes    atomic.Int64
}

// spend accounts for one node expansion.
func (b *budget) spend() error {
	n := b.nodes.Add(1)
	if b.maxNodes > 0 && n > b.maxNodes {
		return errNodeBudget
	}
	return b.ctx.Err()
}

// searcher owns one explicit backtracking stack. Nothing in it is shared
// with other searchers except the read-only items and the budget.
type searcher struct {
	items       []catalog.Item
	length      int
	incremental []constraint.Incremental
	deferred    []constraint.Element
	rng         *rand.Rand
	budget      *budget

	backtracks int64
}

func newSearcher(items []catalog.Item, length int, bundle constraint.Bundle, rng *rand.Rand, b *budget) *searcher {
	inc, deferred := bundle.Split()
	return &searcher{
		items:       items,
		length:      length,
		incremental: inc,
		deferred:    deferred,
		rng:         rng,
		budget:      b,
	}
}

// order returns the candidate order for a freshly entered position.
func (s *searcher) order() []int {
	if s.rng != nil {
		return s.rng.Perm(len(s.items))
	}
	idx := make([]int, len(s.items))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// prunes reports whether the last placed item breaks an incremental constraint.
func (s *searcher) prunes(placed []catalog.Item) bool {
	view := sequence.View(placed)
	for _, c := range s.incremental {
		if c.PrefixViolated(view) {
			return true
		}
	}
	return false
}

func (s *searcher) complete(placed []catalog.Item) bool {
	view := sequence.View(placed)
	for _, e := range s.deferred {
		if !e.Holds(view) {
			return false
		}
	}
	return true
}

// run searches every completion of the fixed prefix. It returns errExhausted
// when no completion exists, or a budget error.
func (s *searcher) run(prefix []int) ([]catalog.Item, error) {
	base := len(prefix)
	placed := make([]catalog.Item, 0, s.length)
	used := make([]bool, len(s.items))
	chosen := make([]int, s.length)
	cursors := make([][]int, s.length)
	next := make([]int, s.length)

	for pos, idx := range prefix {
		if used[idx] {
			return nil, errExhausted
		}
		placed = append(placed, s.items[idx])
		if s.prunes(placed) {
			return nil, errExhausted
		}
		used[idx] = true
		chosen[pos] = idx
	}

	for {
		pos := len(placed)

		if pos == s.length {
			if s.complete(placed) {
				return placed, nil
			}
			if pos == base {
				return nil, errExhausted
			}
			placed = s.pop(placed, used, chosen)
			continue
		}

		if cursors[pos] == nil {
			cursors[pos] = s.order()
			next[pos] = 0
		}

		advanced := false
		for next[pos] < len(cursors[pos]) {
			idx := cursors[pos][next[pos]]
			next[pos]++
			if used[idx] {
				continue
			}
			if err := s.budget.spend(); err != nil {
				return nil, err
			}
			placed = append(placed, s.items[idx])
			if s.prunes(placed) {
				placed = placed[:pos]
				continue
			}
			used[idx] = true
			chosen[pos] = idx
			advanced = true
			break
		}
		if advanced {
			continue
		}

		cursors[pos] = nil
		if pos == base {
			return nil, errExhausted
		}
		placed = s.pop(placed, used, chosen)
	}
}

func (s *searcher) pop(placed []catalog.Item, used []bool, chosen []int) []catalog.Item {
	last := len(placed) - 1
	used[chosen[last]] = false
	s.backtracks++
	return placed[:last]
}

// prefixes enumerates every constraint-respecting prefix of the given depth
// in candidate order. Each candidate evaluation spends one node.
func (s *searcher) prefixes(depth int) ([][]int, error) {
	var out [][]int
	placed := make([]catalog.Item, 0, depth)
	used := make([]bool, len(s.items))
	path := make([]int, 0, depth)

	var walk func() error
	walk = func() error {
		if len(path) == depth {
			out = append(out, append([]int(nil), path...))
			return nil
		}
		for _, idx := range s.order() {
			if used[idx] {
				continue
			}
			if err := s.budget.spend(); err != nil {
				return err
			}
			placed = append(placed, s.items[idx])
			if !s.prunes(placed) {
				used[idx] = true
				path = append(path, idx)
				if err := walk(); err != nil {
					return err
				}
				path = path[:len(path)-1]
				used[idx] = false
			}
			placed = placed[:len(placed)-1]
		}
		return nil
	}

	if err := walk(); err != nil {
		return nil, err
	}
	return out, nil
}
