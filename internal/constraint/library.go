/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package constraint

import "github.com/friendsincode/grimnir_sequencer/internal/sequence"

type uniqueness struct{}

// Uniqueness forbids any item from occupying two positions.
func Uniqueness() Constraint { return uniqueness{} }

func (uniqueness) ID() ID                           { return IDUniqueness }
func (uniqueness) Holds(seq sequence.Sequence) bool { return Unique(seq) }

func (uniqueness) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	if last < 1 {
		return false
	}
	id := prefix.At(last).ID
	for i := 0; i < last; i++ {
		if prefix.At(i).ID == id {
			return true
		}
	}
	return false
}

type adjacentArtist struct{}

// AdjacentArtist forbids neighbouring items by the same artist.
func AdjacentArtist() Constraint { return adjacentArtist{} }

func (adjacentArtist) ID() ID                           { return IDNoAdjacentSameArtist }
func (adjacentArtist) Holds(seq sequence.Sequence) bool { return NoAdjacentSameArtist(seq) }

func (adjacentArtist) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	return last >= 1 && prefix.At(last).ArtistID == prefix.At(last-1).ArtistID
}

type adjacentAlbum struct{}

// AdjacentAlbum forbids neighbouring items from the same album.
func AdjacentAlbum() Constraint { return adjacentAlbum{} }

func (adjacentAlbum) ID() ID                           { return IDNoAdjacentSameAlbum }
func (adjacentAlbum) Holds(seq sequence.Sequence) bool { return NoAdjacentSameAlbum(seq) }

func (adjacentAlbum) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	return last >= 1 && prefix.At(last).AlbumID == prefix.At(last-1).AlbumID
}

// GenreRunConstraint compares genres at window endpoints.
type GenreRunConstraint struct {
	MaxRun int
}

// GenreRun bounds genre runs to maxRun using endpoint comparison.
func GenreRun(maxRun int) Constraint { return GenreRunConstraint{MaxRun: maxRun} }

func (GenreRunConstraint) ID() ID { return IDGenreRunBound }

func (c GenreRunConstraint) Holds(seq sequence.Sequence) bool {
	return GenreRunBounded(seq, c.MaxRun)
}

func (c GenreRunConstraint) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	if c.MaxRun < 1 {
		return last >= 0
	}
	j := last - c.MaxRun
	return j >= 0 && prefix.At(j).GenreID == prefix.At(last).GenreID
}

// EnergyConstraint bounds the energy delta between neighbours.
type EnergyConstraint struct {
	MaxJump int
}

// EnergySmoothness bounds neighbouring energy deltas to maxJump.
func EnergySmoothness(maxJump int) Constraint { return EnergyConstraint{MaxJump: maxJump} }

func (EnergyConstraint) ID() ID { return IDEnergySmoothness }

func (c EnergyConstraint) Holds(seq sequence.Sequence) bool {
	return EnergySmooth(seq, c.MaxJump)
}

func (c EnergyConstraint) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	return last >= 1 && !withinJump(prefix.At(last-1), prefix.At(last), c.MaxJump)
}

type recencyOrder struct{}

// RecencyOrder keeps lower recency ranks ahead of higher ones globally.
func RecencyOrder() Constraint { return recencyOrder{} }

func (recencyOrder) ID() ID                           { return IDRecencyOrder }
func (recencyOrder) Holds(seq sequence.Sequence) bool { return RecencyOrdered(seq) }

// PrefixViolated compares against every earlier position, not just the
// neighbour: the ordering is global.
func (recencyOrder) PrefixViolated(prefix sequence.Sequence) bool {
	last := prefix.LastIndex()
	r := prefix.At(last).Recency
	for i := 0; i < last; i++ {
		if prefix.At(i).Recency > r {
			return true
		}
	}
	return false
}

// ExposureConstraint balances popular and less-played items across halves.
type ExposureConstraint struct {
	PopularThreshold    int
	LessPlayedThreshold int
}

// ExposureBalance requires less-played items early and popular items late.
// It depends on the final midpoint, so it is only checked on complete
// sequences.
func ExposureBalance(popularThreshold, lessPlayedThreshold int) Constraint {
	return ExposureConstraint{PopularThreshold: popularThreshold, LessPlayedThreshold: lessPlayedThreshold}
}

func (ExposureConstraint) ID() ID { return IDExposureBalance }

func (c ExposureConstraint) Holds(seq sequence.Sequence) bool {
	return ExposureBalanced(seq, c.PopularThreshold, c.LessPlayedThreshold)
}

// StreakConstraint holds when some artist run reaches Window positions.
type StreakConstraint struct {
	Window int
}

// ArtistStreak is existential; it is used by the comparator to manufacture
// streaky counter-examples.
func ArtistStreak(window int) Constraint { return StreakConstraint{Window: window} }

func (StreakConstraint) ID() ID { return IDArtistStreak }

func (c StreakConstraint) Holds(seq sequence.Sequence) bool {
	return HasArtistStreak(seq, c.Window)
}

// SpacingConstraint spaces repeats of heavily played items.
type SpacingConstraint struct {
	Threshold int
}

// HighPlaySpacing keeps repeats of items played more than threshold times
// over half a sequence apart.
func HighPlaySpacing(threshold int) Constraint { return SpacingConstraint{Threshold: threshold} }

func (SpacingConstraint) ID() ID { return IDHighPlaySpacing }

func (c SpacingConstraint) Holds(seq sequence.Sequence) bool {
	return HighPlaySpaced(seq, c.Threshold)
}
