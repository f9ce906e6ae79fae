/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package constraint

import (
	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
)

// Unique reports whether all occupied positions hold distinct items.
func Unique(seq sequence.Sequence) bool {
	seen := make(map[string]struct{}, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		id := seq.At(i).ID
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

// NoAdjacentSameArtist reports whether every neighbouring pair differs in artist.
func NoAdjacentSameArtist(seq sequence.Sequence) bool {
	return noAdjacent(seq, artistOf)
}

// NoAdjacentSameAlbum reports whether every neighbouring pair differs in album.
func NoAdjacentSameAlbum(seq sequence.Sequence) bool {
	return noAdjacent(seq, albumOf)
}

// GenreRunBounded checks that the items at i and i+maxRun differ in genre for
// every i with i+maxRun <= LastIndex. Only the window endpoints are compared,
// so interior runs are not bounded. A maxRun below 1 makes every window
// degenerate and only the empty sequence passes.
func GenreRunBounded(seq sequence.Sequence, maxRun int) bool {
	if maxRun < 1 {
		return seq.Empty()
	}
	for i := 0; i+maxRun <= seq.LastIndex(); i++ {
		if seq.At(i).GenreID == seq.At(i+maxRun).GenreID {
			return false
		}
	}
	return true
}

// EnergySmooth reports whether every neighbouring energy delta is at most maxJump.
func EnergySmooth(seq sequence.Sequence, maxJump int) bool {
	for i := 0; i < seq.LastIndex(); i++ {
		if !withinJump(seq.At(i), seq.At(i+1), maxJump) {
			return false
		}
	}
	return true
}

// RecencyOrdered reports whether no item is preceded by one of higher
// recency rank anywhere in the sequence.
func RecencyOrdered(seq sequence.Sequence) bool {
	if seq.Empty() {
		return true
	}
	highest := seq.At(0).Recency
	for i := 1; i < seq.Len(); i++ {
		r := seq.At(i).Recency
		if r < highest {
			return false
		}
		highest = r
	}
	return true
}

// Midpoint is LastIndex divided by two, truncated.
func Midpoint(seq sequence.Sequence) int {
	return seq.LastIndex() / 2
}

// ExposureBalanced requires a less-played item strictly before the midpoint
// and a popular item at or after it. Presence anywhere follows from those
// two placements.
func ExposureBalanced(seq sequence.Sequence, popularThreshold, lessPlayedThreshold int) bool {
	mid := Midpoint(seq)
	var lessEarly, popularLate bool
	for i := 0; i < seq.Len(); i++ {
		pc := seq.At(i).PlayCount
		if pc <= lessPlayedThreshold && i < mid {
			lessEarly = true
		}
		if pc >= popularThreshold && i >= mid {
			popularLate = true
		}
	}
	return lessEarly && popularLate
}

// HasArtistStreak reports whether some run of window contiguous positions
// shares one artist.
func HasArtistStreak(seq sequence.Sequence, window int) bool {
	return LongestRun(seq, artistOf) >= window && window > 0
}

// HighPlaySpaced requires every two occurrences of an item whose play count
// exceeds threshold to be more than half the sequence length apart. Under
// Unique no item occurs twice, so this only bites on sequences that repeat
// items.
func HighPlaySpaced(seq sequence.Sequence, threshold int) bool {
	last := make(map[string]int)
	for i := 0; i < seq.Len(); i++ {
		it := seq.At(i)
		if it.PlayCount <= threshold {
			continue
		}
		if prev, ok := last[it.ID]; ok && 2*(i-prev) <= seq.Len() {
			return false
		}
		last[it.ID] = i
	}
	return true
}

// LongestRun returns the length of the longest contiguous block whose items
// share key.
func LongestRun(seq sequence.Sequence, key func(catalog.Item) string) int {
	if seq.Empty() {
		return 0
	}
	longest, current := 1, 1
	for i := 1; i < seq.Len(); i++ {
		if key(seq.At(i)) == key(seq.At(i-1)) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// MaxEnergyJump returns the largest neighbouring energy delta.
func MaxEnergyJump(seq sequence.Sequence) uint64 {
	var jump uint64
	for i := 0; i < seq.LastIndex(); i++ {
		if d := energyDelta(seq.At(i), seq.At(i+1)); d > jump {
			jump = d
		}
	}
	return jump
}

func noAdjacent(seq sequence.Sequence, key func(catalog.Item) string) bool {
	for i := 0; i < seq.LastIndex(); i++ {
		if key(seq.At(i)) == key(seq.At(i+1)) {
			return false
		}
	}
	return true
}

// energyDelta is computed in uint64 so the full int range cannot overflow.
func energyDelta(a, b catalog.Item) uint64 {
	if a.Energy >= b.Energy {
		return uint64(a.Energy) - uint64(b.Energy)
	}
	return uint64(b.Energy) - uint64(a.Energy)
}

func withinJump(a, b catalog.Item, maxJump int) bool {
	if maxJump < 0 {
		return false
	}
	return energyDelta(a, b) <= uint64(maxJump)
}

func artistOf(it catalog.Item) string { return it.ArtistID }
func albumOf(it catalog.Item) string  { return it.AlbumID }
func genreOf(it catalog.Item) string  { return it.GenreID }

// Attribute keys usable with LongestRun.
var (
	ArtistKey = artistOf
	AlbumKey  = albumOf
	GenreKey  = genreOf
)
