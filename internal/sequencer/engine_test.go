/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/catalog/catalogtest"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

func perceptual() constraint.Bundle {
	return constraint.PerceptualRandomness(constraint.DefaultParams())
}

// assertPerceptualInvariants checks the properties every perceptual result
// must have, independently of the constraint implementations.
func assertPerceptualInvariants(t *testing.T, seq sequence.Sequence, maxJump int) {
	t.Helper()

	seen := map[string]bool{}
	for i := 0; i < seq.Len(); i++ {
		it := seq.At(i)
		if seen[it.ID] {
			t.Fatalf("item %s placed twice in %v", it.ID, seq.IDs())
		}
		seen[it.ID] = true

		if i > 0 {
			prev := seq.At(i - 1)
			if prev.ArtistID == it.ArtistID {
				t.Fatalf("adjacent artist repeat at %d in %v", i, seq.IDs())
			}
			if prev.AlbumID == it.AlbumID {
				t.Fatalf("adjacent album repeat at %d in %v", i, seq.IDs())
			}
			d := prev.Energy - it.Energy
			if d < 0 {
				d = -d
			}
			if d > maxJump {
				t.Fatalf("energy jump %d at %d in %v", d, i, seq.IDs())
			}
		}
		if i+4 <= seq.LastIndex() && it.GenreID == seq.At(i+4).GenreID {
			t.Fatalf("genre endpoints %d and %d match in %v", i, i+4, seq.IDs())
		}
		for j := i + 1; j < seq.Len(); j++ {
			if seq.At(j).Recency < it.Recency {
				t.Fatalf("recency rank drops between %d and %d in %v", i, j, seq.IDs())
			}
		}
	}
}

func TestGenerateEightByFourDeterministic(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	res, err := engine.GenerateWithStats(context.Background(), cat, 8, perceptual(), Options{})
	if err != nil {
		t.Fatalf("expected the perceptual bundle to be satisfiable, got %v", err)
	}
	if res.Sequence.Len() != 8 {
		t.Fatalf("expected 8 items, got %d", res.Sequence.Len())
	}
	if res.Stats.Outcome != OutcomeFound || res.Stats.Nodes == 0 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if got := validator.Validate(res.Sequence, perceptual()); !got.Pass {
		t.Fatalf("result fails validation: %v", got.Violations)
	}
	assertPerceptualInvariants(t, res.Sequence, 5)

	again, err := engine.Generate(context.Background(), cat, 8, perceptual(), Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(again.IDs(), res.Sequence.IDs()) {
		t.Fatalf("deterministic search changed result: %v vs %v", again.IDs(), res.Sequence.IDs())
	}
}

func TestGenerateSeededInvariants(t *testing.T) {
	engine := New(zerolog.Nop())
	cats := map[string]*catalog.Catalog{
		"eight": catalogtest.EightByFour(),
		"rot12": catalogtest.Rotation(12),
	}

	for name, cat := range cats {
		for seed := int64(0); seed < 20; seed++ {
			seq, err := engine.Generate(context.Background(), cat, cat.Len(), perceptual(), Options{}.WithSeed(seed))
			if err != nil {
				t.Fatalf("%s seed %d: %v", name, seed, err)
			}
			if seq.Len() != cat.Len() {
				t.Fatalf("%s seed %d: length %d", name, seed, seq.Len())
			}
			assertPerceptualInvariants(t, seq, 5)
		}
	}
}

func TestGenerateSameSeedSameSequence(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.Rotation(12)
	opts := Options{}.WithSeed(42)

	first, err := engine.Generate(context.Background(), cat, 10, perceptual(), opts)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := engine.Generate(context.Background(), cat, 10, perceptual(), opts)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first.IDs(), second.IDs()) {
		t.Fatalf("same seed gave %v and %v", first.IDs(), second.IDs())
	}
}

func TestGenerateShorterThanCatalog(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.Rotation(12)

	for _, length := range []int{3, 5, 8} {
		seq, err := engine.Generate(context.Background(), cat, length, perceptual(), Options{}.WithSeed(7))
		if err != nil {
			t.Fatalf("length %d: %v", length, err)
		}
		if seq.Len() != length {
			t.Fatalf("length %d: got %d", length, seq.Len())
		}
		if res := validator.Validate(seq, perceptual()); !res.Pass {
			t.Fatalf("length %d fails: %v", length, res.Violations)
		}
	}
}

func TestGenerateUnsatisfiable(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.SingleArtist(4)
	bundle := constraint.NewBundle("no-repeat", constraint.Uniqueness(), constraint.AdjacentArtist())

	for _, workers := range []int{1, 3} {
		res, err := engine.GenerateWithStats(context.Background(), cat, 2, bundle, Options{Workers: workers})
		if !errors.Is(err, ErrUnsatisfiable) {
			t.Fatalf("workers=%d: expected ErrUnsatisfiable, got %v", workers, err)
		}
		if errors.Is(err, ErrTimeout) {
			t.Fatalf("workers=%d: unsatisfiable must not look like a timeout", workers)
		}
		if res.Stats.Outcome != OutcomeUnsatisfiable {
			t.Fatalf("workers=%d: outcome %q", workers, res.Stats.Outcome)
		}
	}
}

func TestGenerateExposureOnlyCheckedAtFullLength(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.SingleArtist(3)
	bundle := constraint.NewBundle("exposure", constraint.ExposureBalance(3, 1))

	// Every item has zero plays, so no popular item can ever be placed.
	if _, err := engine.Generate(context.Background(), cat, 3, bundle, Options{}); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
}

func TestGenerateNodeBudgetTimesOut(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	res, err := engine.GenerateWithStats(context.Background(), cat, 8, perceptual(), Options{MaxNodes: 1})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, ErrUnsatisfiable) {
		t.Fatal("timeout must not be reported as unsatisfiable")
	}
	if res.Stats.Outcome != OutcomeTimeout {
		t.Fatalf("outcome %q", res.Stats.Outcome)
	}
}

func TestGenerateDeadlineTimesOut(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.Rotation(16)
	// Nothing is ever played 100 times, and the only rule that says so is
	// deferred, so the search walks permutations until the deadline.
	bundle := constraint.TrueRandomness().With(constraint.Is(constraint.ExposureBalance(100, 0)))

	res, err := engine.GenerateWithStats(context.Background(), cat, 16, bundle, Options{Timeout: 20 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if res.Stats.Nodes == 0 {
		t.Fatal("expected nodes to be counted before the deadline")
	}
}

func TestGenerateCallerDeadline(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := engine.Generate(ctx, cat, 8, perceptual(), Options{}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout for an expired caller deadline, got %v", err)
	}
}

func TestGenerateCallerCancellation(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Generate(ctx, cat, 8, perceptual(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("cancellation misreported: %v", err)
	}
}

func TestGenerateInvalidLength(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	for _, length := range []int{-1, 9} {
		if _, err := engine.Generate(context.Background(), cat, length, perceptual(), Options{}); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("length %d: expected ErrInvalidLength, got %v", length, err)
		}
	}
}

func TestGenerateNilCatalog(t *testing.T) {
	res, err := New(zerolog.Nop()).GenerateWithStats(context.Background(), nil, 0, perceptual(), Options{})
	if !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
	if res.Stats.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %s", res.Stats.Outcome)
	}
}

func TestGenerateZeroLength(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()

	seq, err := engine.Generate(context.Background(), cat, 0, constraint.TrueRandomness(), Options{})
	if err != nil {
		t.Fatalf("empty sequence with uniqueness only: %v", err)
	}
	if seq.LastIndex() != -1 {
		t.Fatalf("expected empty sequence, got %v", seq.IDs())
	}

	// Exposure balance cannot hold on an empty sequence.
	if _, err := engine.Generate(context.Background(), cat, 0, perceptual(), Options{}); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
}

func TestGenerateNegatedPredicate(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.EightByFour()
	bundle := constraint.TrueRandomness().With(constraint.Not(constraint.AdjacentArtist()))

	seq, err := engine.Generate(context.Background(), cat, 8, bundle, Options{}.WithSeed(3))
	if err != nil {
		t.Fatalf("counter-example search: %v", err)
	}
	if constraint.NoAdjacentSameArtist(seq) {
		t.Fatalf("expected an adjacent artist repeat in %v", seq.IDs())
	}
	if !constraint.Unique(seq) {
		t.Fatalf("counter-example repeats items: %v", seq.IDs())
	}
}

func TestGenerateParallel(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.Rotation(16)

	for _, depth := range []int{1, 2} {
		res, err := engine.GenerateWithStats(context.Background(), cat, 16, perceptual(), Options{Workers: 4, FanoutDepth: depth}.WithSeed(11))
		if err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		if res.Stats.Branches == 0 {
			t.Fatalf("depth %d: expected branches to be recorded", depth)
		}
		assertPerceptualInvariants(t, res.Sequence, 5)
	}
}

func TestGenerateParallelNodeBudget(t *testing.T) {
	engine := New(zerolog.Nop())
	cat := catalogtest.Rotation(16)

	_, err := engine.Generate(context.Background(), cat, 16, perceptual(), Options{Workers: 4, MaxNodes: 3})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
