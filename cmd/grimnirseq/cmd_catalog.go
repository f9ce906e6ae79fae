/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file|s3-uri>...",
	Short: "Import catalog documents into the catalog store",
	Long:  "Validate YAML/JSON catalog documents and store them. A document replaces any stored catalog of the same name.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List imported catalogs",
	RunE:  runCatalogs,
}

var runsCmd = &cobra.Command{
	Use:   "runs <catalog>",
	Short: "List recent generation runs for a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

var (
	importName string
	runsLimit  int
)

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(catalogsCmd)
	rootCmd.AddCommand(runsCmd)

	importCmd.Flags().StringVar(&importName, "name", "", "Catalog name (single file only; default from the document or file name)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importName != "" && len(args) > 1 {
		return fmt.Errorf("--name only applies to a single file")
	}

	svc, err := bootstrap(cmd, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, path := range args {
		doc, err := svc.loadDocument(cmd.Context(), path)
		if err != nil {
			return err
		}
		if importName != "" {
			doc.Name = importName
		}

		record, err := svc.planner.Import(cmd.Context(), doc, path)
		if err != nil {
			return err
		}
		if flagJSON {
			if err := printJSON(record); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("Imported %s: %d items (id %s)\n", record.Name, record.ItemCount, record.ID)
	}
	return nil
}

func runCatalogs(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	list, err := svc.store.List(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(list)
	}

	if len(list) == 0 {
		fmt.Println("No catalogs imported.")
		return nil
	}
	fmt.Printf("  %-36s %-24s %6s  %s\n", "ID", "NAME", "ITEMS", "UPDATED")
	for _, c := range list {
		fmt.Printf("  %-36s %-24s %6d  %s\n", c.ID, c.Name, c.ItemCount, c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	svc, err := bootstrap(cmd, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	runs, err := svc.planner.Runs(cmd.Context(), args[0], runsLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(runs)
	}

	for _, r := range runs {
		seed := "-"
		if r.Seed != nil {
			seed = fmt.Sprintf("%d", *r.Seed)
		}
		fmt.Printf("%s  %s  %-22s len=%-3d seed=%-6s %-13s nodes=%-8d cached=%v\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Bundle, r.Length, seed, r.Outcome, r.Nodes, r.CacheHit)
		if len(r.ItemIDs) > 0 {
			fmt.Printf("    %s\n", strings.Join(r.ItemIDs, " "))
		}
		if r.Error != "" {
			fmt.Printf("    error: %s\n", r.Error)
		}
	}
	return nil
}
