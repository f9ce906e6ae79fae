/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package comparator

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/catalog/catalogtest"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

func newComparator() *Comparator {
	return New(
		sequencer.New(zerolog.Nop()),
		validator.New(zerolog.Nop()),
		constraint.DefaultParams(),
		sequencer.Options{MaxNodes: 500_000},
		zerolog.Nop(),
	)
}

func TestTrulyRandomStreaksWherePerceptualNeverDoes(t *testing.T) {
	c := newComparator()
	cat := catalogtest.EightByFour()
	ctx := context.Background()

	trulyStreaks := 0
	for seed := int64(0); seed < 50; seed++ {
		seeded := c.WithSeed(seed)

		truly, err := seeded.TrulyRandom(ctx, cat, 8)
		if err != nil {
			t.Fatalf("seed %d truly random: %v", seed, err)
		}
		if !constraint.Unique(truly) || truly.Len() != 8 {
			t.Fatalf("seed %d truly random is not a permutation: %v", seed, truly.IDs())
		}
		if DetectStreak(truly, 2) {
			trulyStreaks++
		}

		perceptual, err := seeded.PerceptuallyRandom(ctx, cat, 8)
		if err != nil {
			t.Fatalf("seed %d perceptual: %v", seed, err)
		}
		if DetectStreak(perceptual, 2) {
			t.Fatalf("seed %d perceptual result has a streak: %v", seed, perceptual.IDs())
		}
	}

	if trulyStreaks == 0 {
		t.Fatal("expected at least one truly random ordering with an artist streak")
	}
}

func TestCounterexampleAlwaysStreaks(t *testing.T) {
	c := newComparator()
	cat := catalogtest.EightByFour()

	for seed := int64(0); seed < 10; seed++ {
		seq, err := c.WithSeed(seed).Counterexample(context.Background(), cat, 8, constraint.TrueRandomness(), constraint.AdjacentArtist())
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !DetectStreak(seq, 2) {
			t.Fatalf("seed %d: counterexample without streak: %v", seed, seq.IDs())
		}
		if !constraint.Unique(seq) {
			t.Fatalf("seed %d: counterexample repeats items: %v", seed, seq.IDs())
		}
	}
}

func TestCounterexampleUnsatisfiable(t *testing.T) {
	c := newComparator()
	cat := catalogtest.EightByFour()

	// No ordering can both avoid and contain an adjacent artist repeat.
	required := constraint.NewBundle("strict", constraint.Uniqueness(), constraint.AdjacentArtist())
	_, err := c.Counterexample(context.Background(), cat, 8, required, constraint.AdjacentArtist())
	if !errors.Is(err, sequencer.ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
}

func TestUserSatisfied(t *testing.T) {
	c := newComparator()
	cat := catalogtest.EightByFour()

	seq, err := c.WithSeed(5).UserSatisfied(context.Background(), cat, 8)
	if err != nil {
		t.Fatalf("user satisfied: %v", err)
	}
	res := validator.Validate(seq, constraint.UserSatisfied(c.Params()))
	if !res.Pass {
		t.Fatalf("violations: %v", res.Violations)
	}
}

func TestDetectStreak(t *testing.T) {
	a1 := catalog.Item{ID: "a1", ArtistID: "a"}
	a2 := catalog.Item{ID: "a2", ArtistID: "a"}
	a3 := catalog.Item{ID: "a3", ArtistID: "a"}
	b1 := catalog.Item{ID: "b1", ArtistID: "b"}

	tests := []struct {
		name   string
		seq    sequence.Sequence
		window int
		want   bool
	}{
		{"empty", sequence.New(), 2, false},
		{"single", sequence.New(a1), 1, true},
		{"alternating", sequence.New(a1, b1, a2), 2, false},
		{"pair", sequence.New(b1, a1, a2), 2, true},
		{"pair is not a triple", sequence.New(b1, a1, a2), 3, false},
		{"triple", sequence.New(a1, a2, a3, b1), 3, true},
		{"zero window", sequence.New(a1, a2), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectStreak(tt.seq, tt.window); got != tt.want {
				t.Fatalf("DetectStreak(%v, %d) = %v, want %v", tt.seq.IDs(), tt.window, got, tt.want)
			}
		})
	}
}

func TestContrast(t *testing.T) {
	c := newComparator().WithSeed(3)
	cat := catalogtest.EightByFour()

	report, err := c.Contrast(context.Background(), cat, 8)
	if err != nil {
		t.Fatalf("contrast: %v", err)
	}
	p := report.PerceptuallyRandom
	if !p.Perceptual.Pass {
		t.Fatalf("perceptual profile fails its own bundle: %v", p.Perceptual.Violations)
	}
	if p.ArtistStreak || p.LongestArtistRun != 1 || p.LongestAlbumRun != 1 {
		t.Fatalf("unexpected perceptual profile %+v", p)
	}
	if p.MaxEnergyJump > 5 {
		t.Fatalf("perceptual max energy jump %d", p.MaxEnergyJump)
	}
	if len(report.TrulyRandom.ItemIDs) != 8 || report.TrulyRandom.Stats == nil {
		t.Fatalf("unexpected truly random profile %+v", report.TrulyRandom)
	}
	if report.TrulyRandom.ArtistStreak != (report.TrulyRandom.LongestArtistRun >= 2) {
		t.Fatalf("streak flag disagrees with longest run: %+v", report.TrulyRandom)
	}
}

func TestContrastValidatesEachProfileOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := New(
		sequencer.New(zerolog.Nop()),
		validator.New(logger),
		constraint.DefaultParams(),
		sequencer.Options{MaxNodes: 500_000},
		zerolog.Nop(),
	)

	// Catalog order puts s5 right after s1, both by ar1.
	report, err := c.Contrast(context.Background(), catalogtest.EightByFour(), 8)
	if err != nil {
		t.Fatalf("contrast: %v", err)
	}
	if report.TrulyRandom.Perceptual.Pass || !report.PerceptuallyRandom.Perceptual.Pass {
		t.Fatalf("unexpected verdicts: truly=%v perceptual=%v",
			report.TrulyRandom.Perceptual.Violations, report.PerceptuallyRandom.Perceptual.Violations)
	}
	if got := strings.Count(buf.String(), "sequence rejected"); got != 1 {
		t.Fatalf("validator rejected %d times, want 1:\n%s", got, buf.String())
	}

	seq := sequence.New(catalogtest.EightByFour().Items()...)
	want := Measure(seq, constraint.BundleTrueRandomness, DefaultStreakWindow, constraint.DefaultParams())
	if !reflect.DeepEqual(report.TrulyRandom.Perceptual, want.Perceptual) {
		t.Fatalf("profile verdict %+v, Measure verdict %+v", report.TrulyRandom.Perceptual, want.Perceptual)
	}
}

func TestMeasure(t *testing.T) {
	items := []catalog.Item{
		{ID: "x1", ArtistID: "a", AlbumID: "al", GenreID: "g", Energy: 0, Recency: catalog.RecencyStale},
		{ID: "x2", ArtistID: "a", AlbumID: "al", GenreID: "g", Energy: 9, Recency: catalog.RecencyStale},
		{ID: "x3", ArtistID: "b", AlbumID: "bl", GenreID: "g", Energy: 7, Recency: catalog.RecencyRecent},
	}
	p := Measure(sequence.New(items...), "manual", 2, constraint.DefaultParams())

	if p.LongestArtistRun != 2 || p.LongestAlbumRun != 2 || p.LongestGenreRun != 3 {
		t.Fatalf("unexpected runs %+v", p)
	}
	if p.MaxEnergyJump != 9 {
		t.Fatalf("MaxEnergyJump = %d", p.MaxEnergyJump)
	}
	if !p.ArtistStreak {
		t.Fatal("expected artist streak")
	}
	for _, id := range []constraint.ID{constraint.IDNoAdjacentSameArtist, constraint.IDEnergySmoothness, constraint.IDExposureBalance} {
		if !p.Perceptual.Has(id) {
			t.Errorf("expected %s among violations %v", id, p.Perceptual.Violations)
		}
	}
}

func TestBench(t *testing.T) {
	c := newComparator()
	cat := catalogtest.EightByFour()

	res, err := c.Bench(context.Background(), cat, 8, 20, 100, 4)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	if res.Runs != 20 || res.PerceptualFailures != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.PerceptualStreaks != 0 || res.PerceptualRate != 0 {
		t.Fatalf("perceptual orderings streaked: %+v", res)
	}
	if res.TrulyRandomStreaks == 0 || res.TrulyRandomRate <= 0 {
		t.Fatalf("expected truly random streaks: %+v", res)
	}
	if res.MeanTrulyArtistRun < 1 {
		t.Fatalf("mean artist run %v", res.MeanTrulyArtistRun)
	}
}

type failingGenerator struct {
	failBundle string
	err        error
}

func (f failingGenerator) GenerateWithStats(ctx context.Context, cat *catalog.Catalog, length int, bundle constraint.Bundle, opts sequencer.Options) (sequencer.Result, error) {
	if bundle.Name == f.failBundle {
		return sequencer.Result{}, f.err
	}
	return sequencer.New(zerolog.Nop()).GenerateWithStats(ctx, cat, length, bundle, opts)
}

func TestContrastPropagatesErrors(t *testing.T) {
	gen := failingGenerator{failBundle: constraint.BundlePerceptualRandomness, err: sequencer.ErrTimeout}
	c := New(gen, validator.New(zerolog.Nop()), constraint.DefaultParams(), sequencer.Options{}, zerolog.Nop())

	_, err := c.Contrast(context.Background(), catalogtest.EightByFour(), 8)
	if !errors.Is(err, sequencer.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	res, err := c.Bench(context.Background(), catalogtest.EightByFour(), 8, 3, 0, 2)
	if err != nil {
		t.Fatalf("bench should tolerate perceptual failures: %v", err)
	}
	if res.PerceptualFailures != 3 || res.PerceptualRate != 0 {
		t.Fatalf("unexpected bench result %+v", res)
	}
}
