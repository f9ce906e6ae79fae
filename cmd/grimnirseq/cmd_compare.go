/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_sequencer/internal/comparator"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Contrast a truly random ordering with a perceptually random one",
	RunE:  runCompare,
}

var counterexampleCmd = &cobra.Command{
	Use:   "counterexample",
	Short: "Find a sequence that satisfies a bundle but still has an artist streak",
	RunE:  runCounterexample,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure streak rates over many seeded contrasts",
	Long: "Run compare for a range of seeds and report how often each ordering " +
		"contains an artist streak. Metrics are served on GRIMNIR_SEQ_METRICS_BIND while the bench runs.",
	RunE: runBench,
}

var (
	cmpCatalog string
	cmpLength  int
	cmpSeed    int64
	cmpRuns    int
	cmpBundle  string
)

func init() {
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(counterexampleCmd)
	rootCmd.AddCommand(benchCmd)

	for _, cmd := range []*cobra.Command{compareCmd, counterexampleCmd, benchCmd} {
		cmd.Flags().StringVar(&cmpCatalog, "catalog", "", "Catalog file, s3:// URI, ID or name (required)")
		cmd.Flags().IntVar(&cmpLength, "length", -1, "Sequence length, -1 for the whole catalog")
		cmd.Flags().Int64Var(&cmpSeed, "seed", 0, "Seed (base seed for bench)")
		_ = cmd.MarkFlagRequired("catalog")
		addSearchFlags(cmd)
	}
	counterexampleCmd.Flags().StringVar(&cmpBundle, "bundle", constraint.BundleTrueRandomness, "Bundle the counter-example must satisfy")
	benchCmd.Flags().IntVar(&cmpRuns, "runs", 100, "Number of seeds to try")
}

// newComparator builds a comparator from the command's search flags. With
// sequential set every search runs on one goroutine.
func newComparator(cmd *cobra.Command, sequential bool) *comparator.Comparator {
	opts := searchOptions(cmd)
	if sequential {
		opts.Workers = 1
	}
	c := comparator.New(sequencer.New(logger), validator.New(logger), cfg.Params, opts, logger)
	if cmd.Flags().Changed("seed") {
		c = c.WithSeed(cmpSeed)
	}
	return c
}

func runCompare(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	cat, name, err := svc.openCatalog(cmd.Context(), cmpCatalog)
	if err != nil {
		return err
	}
	length := cmpLength
	if length < 0 {
		length = cat.Len()
	}

	report, err := newComparator(cmd, false).Contrast(cmd.Context(), cat, length)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(report)
	}

	fmt.Printf("\nCatalog: %s  Length: %d  Streak window: %d\n", name, report.Length, report.StreakWindow)
	for _, p := range []comparator.Profile{report.TrulyRandom, report.PerceptuallyRandom} {
		fmt.Printf("\n%s\n", p.Bundle)
		fmt.Printf("  Order:              %s\n", strings.Join(p.ItemIDs, " "))
		fmt.Printf("  Artist streak:      %v\n", p.ArtistStreak)
		fmt.Printf("  Longest runs:       artist %d, album %d, genre %d\n", p.LongestArtistRun, p.LongestAlbumRun, p.LongestGenreRun)
		fmt.Printf("  Max energy jump:    %d\n", p.MaxEnergyJump)
		fmt.Printf("  Perceptually valid: %v", p.Perceptual.Pass)
		if len(p.Perceptual.Violations) > 0 {
			fmt.Printf(" (violates %v)", p.Perceptual.Violations)
		}
		fmt.Println()
	}
	return nil
}

func runCounterexample(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	cat, _, err := svc.openCatalog(cmd.Context(), cmpCatalog)
	if err != nil {
		return err
	}
	length := cmpLength
	if length < 0 {
		length = cat.Len()
	}
	required, err := constraint.Named(cmpBundle, cfg.Params)
	if err != nil {
		return err
	}

	// A streak is the negation of the no-adjacent-artist rule.
	seq, err := newComparator(cmd, false).Counterexample(cmd.Context(), cat, length, required, constraint.AdjacentArtist())
	if err != nil {
		return err
	}
	profile := comparator.Measure(seq, required.Name, comparator.DefaultStreakWindow, cfg.Params)
	if flagJSON {
		return printJSON(profile)
	}

	fmt.Printf("\nSatisfies %s yet contains an artist streak:\n\n", required.Name)
	for i, item := range seq.Items() {
		printItem(i, item)
	}
	fmt.Printf("\nLongest artist run: %d\n", profile.LongestArtistRun)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	cat, name, err := svc.openCatalog(cmd.Context(), cmpCatalog)
	if err != nil {
		return err
	}
	length := cmpLength
	if length < 0 {
		length = cat.Len()
	}

	workers := searchOptions(cmd).Workers
	logger.Info().Str("catalog", name).Int("length", length).Int("runs", cmpRuns).Int("workers", workers).Msg("bench starting")

	// Bench parallelism is across seeds.
	res, err := newComparator(cmd, true).Bench(cmd.Context(), cat, length, cmpRuns, cmpSeed, workers)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}

	fmt.Printf("\nBench: %s, length %d, %d runs\n\n", name, res.Length, res.Runs)
	fmt.Printf("  Truly random streak rate:   %.3f (%d runs)\n", res.TrulyRandomRate, res.TrulyRandomStreaks)
	fmt.Printf("  Perceptual streak rate:     %.3f (%d runs)\n", res.PerceptualRate, res.PerceptualStreaks)
	fmt.Printf("  Perceptual search failures: %d\n", res.PerceptualFailures)
	fmt.Printf("  Mean truly random artist run:  %.2f\n", res.MeanTrulyArtistRun)
	fmt.Printf("  Mean truly random energy jump: %.2f\n", res.MeanTrulyEnergyJump)
	return nil
}
