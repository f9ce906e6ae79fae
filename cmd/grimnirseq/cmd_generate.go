/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/constraint"
	"github.com/friendsincode/grimnir_sequencer/internal/planner"
	"github.com/friendsincode/grimnir_sequencer/internal/sequence"
	"github.com/friendsincode/grimnir_sequencer/internal/sequencer"
	"github.com/friendsincode/grimnir_sequencer/internal/validator"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a sequence satisfying a constraint bundle",
	Long: "Search a catalog for an ordering that satisfies a constraint bundle. " +
		"The catalog is a YAML/JSON file, an s3:// URI or the ID or name of an imported catalog.",
	RunE: runGenerate,
}

var validateCmd = &cobra.Command{
	Use:   "validate [item-id...]",
	Short: "Check a given ordering against a constraint bundle",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var (
	genCatalog    string
	genLength     int
	genBundle     string
	genBundleFile string
	genSeed       int64
)

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)

	for _, cmd := range []*cobra.Command{generateCmd, validateCmd} {
		cmd.Flags().StringVar(&genCatalog, "catalog", "", "Catalog file, s3:// URI, ID or name (required)")
		cmd.Flags().StringVar(&genBundle, "bundle", "", "Bundle name (default from GRIMNIR_SEQ_BUNDLE)")
		cmd.Flags().StringVar(&genBundleFile, "bundle-file", "", "YAML/JSON bundle definition")
		_ = cmd.MarkFlagRequired("catalog")
	}
	generateCmd.Flags().IntVar(&genLength, "length", -1, "Sequence length, -1 for the whole catalog")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Seed for randomized search order; omit for catalog order")
	addSearchFlags(generateCmd)
}

// resolveBundle picks the bundle from flags, then configuration.
func resolveBundle(svc *services) (constraint.Bundle, error) {
	file := genBundleFile
	if file == "" && genBundle == "" {
		file = cfg.BundleFile
	}
	if file != "" {
		def, err := constraint.LoadDefinition(file)
		if err != nil {
			return constraint.Bundle{}, err
		}
		return def.Compile(cfg.Params)
	}

	name := genBundle
	if name == "" {
		name = cfg.Bundle
	}
	if svc.planner != nil {
		return svc.planner.Bundle(name)
	}
	return constraint.Named(name, cfg.Params)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close()
	ctx := cmd.Context()

	var seed *int64
	if cmd.Flags().Changed("seed") {
		seed = &genSeed
	}

	bundle, err := resolveBundle(svc)
	if err != nil {
		return err
	}

	// Imported catalogs go through the planner so the run is recorded. The
	// planner loads the catalog itself; only the record is read here.
	if svc.planner != nil && !isDocumentRef(genCatalog) {
		req, err := svc.storedRequest(ctx, genCatalog, genLength, bundle.Name, seed)
		if err != nil {
			return err
		}
		if genBundleFile != "" {
			if err := svc.planner.Register(bundle); err != nil {
				return err
			}
		}
		plan, err := svc.planner.Generate(ctx, req)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(plan)
		}
		printSequence(plan.CatalogName, bundle, plan.Sequence, plan.Stats, plan.Validation)
		if plan.CacheHit {
			fmt.Println("(served from cache)")
		}
		return nil
	}

	cat, catalogName, err := svc.openCatalog(ctx, genCatalog)
	if err != nil {
		return err
	}
	length := genLength
	if length < 0 {
		length = cat.Len()
	}

	opts := searchOptions(cmd)
	opts.Seed = seed
	res, err := sequencer.New(logger).GenerateWithStats(ctx, cat, length, bundle, opts)
	if err != nil {
		return err
	}
	result := validator.New(logger).Validate(res.Sequence, bundle)

	if flagJSON {
		return printJSON(map[string]any{
			"catalog_name": catalogName,
			"bundle":       bundle.Name,
			"item_ids":     res.Sequence.IDs(),
			"stats":        res.Stats,
			"validation":   result,
		})
	}
	printSequence(catalogName, bundle, res.Sequence, res.Stats, result)
	return nil
}

// storedRequest builds a planner request for an imported catalog. A negative
// length means the whole catalog, taken from the stored item count.
func (s *services) storedRequest(ctx context.Context, ref string, length int, bundle string, seed *int64) (planner.Request, error) {
	record, err := s.store.Find(ctx, ref)
	if err != nil {
		return planner.Request{}, err
	}
	if length < 0 {
		length = record.ItemCount
	}
	return planner.Request{Catalog: record.ID, Length: length, Bundle: bundle, Seed: seed}, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	bundle, err := resolveBundle(svc)
	if err != nil {
		return err
	}
	cat, _, err := svc.openCatalog(cmd.Context(), genCatalog)
	if err != nil {
		return err
	}

	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	seq, err := sequence.FromIDs(cat, ids)
	if err != nil {
		return err
	}

	result := validator.New(logger).Validate(seq, bundle)
	if flagJSON {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printValidation(result)
	}
	if !result.Pass {
		return fmt.Errorf("sequence violates %d constraint(s) of %s", len(result.Violations), bundle.Name)
	}
	return nil
}

func printSequence(catalogName string, bundle constraint.Bundle, seq sequence.Sequence, stats sequencer.Stats, result validator.Result) {
	fmt.Printf("\nCatalog: %s\n", catalogName)
	fmt.Printf("Bundle:  %s\n\n", bundle)
	fmt.Printf("  %-4s %-16s %-12s %-12s %-12s %6s %6s %s\n", "#", "ITEM", "ARTIST", "ALBUM", "GENRE", "ENERGY", "PLAYS", "RECENCY")
	for i, item := range seq.Items() {
		printItem(i, item)
	}
	fmt.Printf("\nNodes: %d  Backtracks: %d  Elapsed: %s\n", stats.Nodes, stats.Backtracks, stats.Elapsed)
	printValidation(result)
}

func printItem(pos int, item catalog.Item) {
	fmt.Printf("  %-4d %-16s %-12s %-12s %-12s %6d %6d %s\n",
		pos, item.ID, item.ArtistID, item.AlbumID, item.GenreID, item.Energy, item.PlayCount, item.Recency)
}

func printValidation(result validator.Result) {
	if result.Pass {
		fmt.Printf("Validation (%s): pass\n", result.Bundle)
		return
	}
	fmt.Printf("Validation (%s): FAIL\n", result.Bundle)
	for _, id := range result.Violations {
		fmt.Printf("  - %s\n", id)
	}
}
