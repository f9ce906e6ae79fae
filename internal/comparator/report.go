/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package comparator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

// Profile summarises the perceptual shape of one sequence.
type Profile struct {
	Bundle           string           `json:"bundle"`
	ItemIDs          []string         `json:"item_ids"`
	LongestArtistRun int              `json:"longest_artist_run"`
	LongestAlbumRun  int              `json:"longest_album_run"`
	LongestGenreRun  int              `json:"longest_genre_run"`
	MaxEnergyJump    uint64           `json:"max_energy_jump"`
	ArtistStreak     bool             `json:"artist_streak"`
	Perceptual       validator.Result `json:"perceptual"`
	Stats            *sequencer.Stats `json:"stats,omitempty"`
}

// Report contrasts a truly random and a perceptually random ordering of
// the same catalog at the same length.
type Report struct {
	Length             int     `json:"length"`
	StreakWindow       int     `json:"streak_window"`
	TrulyRandom        Profile `json:"truly_random"`
	PerceptuallyRandom Profile `json:"perceptually_random"`
}

// Measure profiles seq and judges it against the perceptual bundle built
// from params.
func Measure(seq sequence.Sequence, bundle string, window int, params constraint.Params) Profile {
	return measure(seq, bundle, window, validator.Validate(seq, constraint.PerceptualRandomness(params)))
}

func measure(seq sequence.Sequence, bundle string, window int, perceptual validator.Result) Profile {
	return Profile{
		Bundle:           bundle,
		ItemIDs:          seq.IDs(),
		LongestArtistRun: constraint.LongestRun(seq, constraint.ArtistKey),
		LongestAlbumRun:  constraint.LongestRun(seq, constraint.AlbumKey),
		LongestGenreRun:  constraint.LongestRun(seq, constraint.GenreKey),
		MaxEnergyJump:    constraint.MaxEnergyJump(seq),
		ArtistStreak:     DetectStreak(seq, window),
		Perceptual:       perceptual,
	}
}

// Contrast generates both orderings and profiles them.
func (c *Comparator) Contrast(ctx context.Context, cat *catalog.Catalog, length int) (Report, error) {
	report := Report{Length: length, StreakWindow: DefaultStreakWindow}

	truly, err := c.run(ctx, cat, length, constraint.TrueRandomness())
	if err != nil {
		return report, err
	}
	perceptual, err := c.run(ctx, cat, length, constraint.PerceptualRandomness(c.params))
	if err != nil {
		return report, err
	}

	report.TrulyRandom = c.profile(truly, constraint.BundleTrueRandomness)
	report.PerceptuallyRandom = c.profile(perceptual, constraint.BundlePerceptualRandomness)

	c.logger.Debug().
		Int("length", length).
		Bool("truly_random_streak", report.TrulyRandom.ArtistStreak).
		Bool("perceptual_streak", report.PerceptuallyRandom.ArtistStreak).
		Msg("contrast complete")
	return report, nil
}

func (c *Comparator) profile(res sequencer.Result, bundle string) Profile {
	p := measure(res.Sequence, bundle, DefaultStreakWindow,
		c.validator.Validate(res.Sequence, constraint.PerceptualRandomness(c.params)))
	stats := res.Stats
	p.Stats = &stats
	return p
}

// BenchResult tallies streaks over repeated seeded contrasts.
type BenchResult struct {
	Runs                int     `json:"runs"`
	Length              int     `json:"length"`
	TrulyRandomStreaks  int     `json:"truly_random_streaks"`
	PerceptualStreaks   int     `json:"perceptual_streaks"`
	PerceptualFailures  int     `json:"perceptual_failures"`
	TrulyRandomRate     float64 `json:"truly_random_rate"`
	PerceptualRate      float64 `json:"perceptual_rate"`
	MeanTrulyArtistRun  float64 `json:"mean_truly_artist_run"`
	MeanTrulyEnergyJump float64 `json:"mean_truly_energy_jump"`
}

// Bench runs Contrast for seeds baseSeed..baseSeed+runs-1 on up to workers
// goroutines. Perceptual searches that fail count as failures, not errors;
// any truly random failure aborts the bench.
func (c *Comparator) Bench(ctx context.Context, cat *catalog.Catalog, length, runs int, baseSeed int64, workers int) (BenchResult, error) {
	out := BenchResult{Runs: runs, Length: length}
	if runs <= 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu        sync.Mutex
		artistSum int
		jumpSum   uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < runs; i++ {
		seed := baseSeed + int64(i)
		g.Go(func() error {
			seeded := c.WithSeed(seed)
			truly, err := seeded.run(gctx, cat, length, constraint.TrueRandomness())
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			tp := Measure(truly.Sequence, constraint.BundleTrueRandomness, DefaultStreakWindow, c.params)

			perceptual, perr := seeded.run(gctx, cat, length, constraint.PerceptualRandomness(c.params))

			mu.Lock()
			defer mu.Unlock()
			if tp.ArtistStreak {
				out.TrulyRandomStreaks++
			}
			artistSum += tp.LongestArtistRun
			jumpSum += tp.MaxEnergyJump
			if perr != nil {
				out.PerceptualFailures++
				return nil
			}
			if DetectStreak(perceptual.Sequence, DefaultStreakWindow) {
				out.PerceptualStreaks++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	out.TrulyRandomRate = float64(out.TrulyRandomStreaks) / float64(runs)
	if ok := runs - out.PerceptualFailures; ok > 0 {
		out.PerceptualRate = float64(out.PerceptualStreaks) / float64(ok)
	}
	out.MeanTrulyArtistRun = float64(artistSum) / float64(runs)
	out.MeanTrulyEnergyJump = float64(jumpSum) / float64(runs)
	return out, nil
}
