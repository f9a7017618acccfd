// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/report"
)

var (
	reportCmd = &cobra.Command{
		Use:   "report BATCH",
		Short: "Render the lineage report for one batch",
		Long: `Builds the provenance graph from the transaction file and renders
the lineage report for the named batch: status, current volume,
contributing batches, and the transactions that touched it. With
--tree, the complete recursive ancestry is emitted as JSON instead.`,
		Args: cobra.ExactArgs(1),
		Run:  runReportCommand,
	}

	reportTransactionFile string
	reportTree            bool
)

func init() {
	reportCmd.Flags().StringVar(&reportTransactionFile, "transaction-file", "",
		"path to the transaction CSV export (required)")
	reportCmd.Flags().BoolVar(&reportTree, "tree", false,
		"emit the full ancestry tree as JSON")
	reportCmd.MarkFlagRequired("transaction-file")

	rootCmd.AddCommand(reportCmd)
}

func runReportCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	batch := args[0]
	outCfg := OutputConfig{JSON: reportTree}

	loaded, err := ledger.NewLoader(log).LoadFile(reportTransactionFile)
	if err != nil {
		os.Exit(OutputResult(outCfg, "report", start, nil, err))
	}

	g := lineage.Build(loaded.Transactions, lineage.WithLogger(log))
	q := lineage.NewQuerier(g, lineage.WithCacheSize(cfg.Analysis.CacheSize))

	if reportTree {
		tree, err := q.FullTree(cmd.Context(), batch)
		if err != nil {
			os.Exit(OutputResult(outCfg, "report", start, nil, err))
		}
		if err := OutputJSON(tree); err != nil {
			os.Exit(OutputResult(outCfg, "report", start, nil, err))
		}
		os.Exit(CLIExitSuccess)
	}

	renderer := report.NewRenderer(g, q)
	if err := renderer.BatchReport(os.Stdout, batch); err != nil {
		os.Exit(OutputResult(outCfg, "report", start, nil, err))
	}
	os.Exit(CLIExitSuccess)
}
