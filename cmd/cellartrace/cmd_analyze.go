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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/export"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/report"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/vessels"
)

// SummaryFileName is the inventory summary written next to the export
// artifacts.
const SummaryFileName = "inventory_summary.txt"

// DetailedReportsDirName holds the per-batch lineage report files.
const DetailedReportsDirName = "detailed_batch_reports"

var (
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Build the lineage graph and write all analysis artifacts",
		Long: `Reads a cellar transaction CSV export, builds the batch provenance
graph, and writes the flattened lineage CSVs, the normalized transaction
dump, the complete JSON document, and the inventory summary report.
Malformed rows are skipped and counted; the run only fails when the
input file is missing or no usable rows survive validation.`,
		Run: runAnalyzeCommand,
	}

	analyzeTransactionFile string
	analyzeOutputDir       string
	analyzeVesselsFile     string
	analyzeDetailed        bool
	analyzeFilter          string
	analyzeJSON            bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTransactionFile, "transaction-file", "",
		"path to the transaction CSV export (required)")
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", "",
		"directory for analysis artifacts (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeVesselsFile, "vessels-file", "",
		"optional vessel snapshot JSON for inventory cross-reference")
	analyzeCmd.Flags().BoolVar(&analyzeDetailed, "detailed-reports", false,
		"write one lineage report file per on-hand batch")
	analyzeCmd.Flags().StringVar(&analyzeFilter, "filter", "all",
		"lineage CSV filter: all or on-hand")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"emit the run summary as JSON on stdout")
	analyzeCmd.MarkFlagRequired("transaction-file")

	rootCmd.AddCommand(analyzeCmd)
}

// AnalyzeResult is the run summary for the analyze command.
type AnalyzeResult struct {
	RunID        string  `json:"run_id"`
	Transactions int     `json:"transactions"`
	SkippedRows  int     `json:"skipped_rows"`
	Batches      int     `json:"batches"`
	Edges        int     `json:"edges"`
	TotalGallons float64 `json:"total_gallons_contributed"`
	OnHand       int     `json:"on_hand_batches"`
	Shipped      int     `json:"shipped_batches"`
	OutputDir    string  `json:"output_dir"`
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	outCfg := OutputConfig{JSON: analyzeJSON}

	result, err := runAnalysis(cmd.Context())
	os.Exit(OutputResult(outCfg, "analyze", start, result, err))
}

func runAnalysis(ctx context.Context) (*AnalyzeResult, error) {
	outputDir := analyzeOutputDir
	if outputDir == "" {
		outputDir = cfg.Analysis.OutputDir
	}
	vesselsFile := analyzeVesselsFile
	if vesselsFile == "" {
		vesselsFile = cfg.Analysis.VesselsFile
	}

	filter, err := export.ParseFilter(analyzeFilter)
	if err != nil {
		return nil, err
	}

	loaded, err := ledger.NewLoader(log).LoadFile(analyzeTransactionFile)
	if err != nil {
		return nil, err
	}
	txs := loaded.Transactions
	if cfg.Analysis.Winery != "" {
		txs = filterByWinery(txs, cfg.Analysis.Winery)
		if len(txs) == 0 {
			return nil, fmt.Errorf("no transactions left for winery %q: %w",
				cfg.Analysis.Winery, ledger.ErrNoUsableRows)
		}
	}

	g := lineage.Build(txs, lineage.WithLogger(log))
	q := lineage.NewQuerier(g, lineage.WithCacheSize(cfg.Analysis.CacheSize))

	exporter := export.New(g, export.WithLogger(log), export.WithFilter(filter))
	if err := exporter.WriteAll(ctx, outputDir); err != nil {
		return nil, err
	}

	// The vessel snapshot is optional; a missing or unreadable file
	// downgrades to a warning and the summary skips the cross-reference.
	var vesselBatches []string
	if vesselsFile != "" {
		vs, err := vessels.LoadFile(vesselsFile)
		if err != nil {
			log.Warn("vessel snapshot unavailable, skipping cross-reference",
				"path", vesselsFile, "error", err)
		} else {
			vesselBatches = vessels.OnHandBatches(vs)
		}
	}

	renderer := report.NewRenderer(g, q)
	if err := writeSummary(renderer, outputDir, vesselBatches); err != nil {
		return nil, err
	}
	if analyzeDetailed {
		dir := filepath.Join(outputDir, DetailedReportsDirName)
		if err := renderer.WriteDetailedReports(dir, q.OnHandBatches()); err != nil {
			return nil, err
		}
	}

	stats := g.Stats()
	result := &AnalyzeResult{
		RunID:        exporter.RunID(),
		Transactions: stats.Transactions,
		SkippedRows:  loaded.ErrorCount(),
		Batches:      stats.Batches,
		Edges:        stats.Edges,
		TotalGallons: stats.TotalGallons,
		OnHand:       stats.OnHand,
		Shipped:      stats.Shipped,
		OutputDir:    outputDir,
	}
	if !analyzeJSON {
		printAnalyzeSummary(result)
	}
	return result, nil
}

func filterByWinery(txs []ledger.Transaction, winery string) []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Winery == winery {
			out = append(out, t)
		}
	}
	return out
}

func writeSummary(r *report.Renderer, outputDir string, vesselBatches []string) error {
	path := filepath.Join(outputDir, SummaryFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary %s: %w", path, err)
	}
	if err := r.Summary(f, vesselBatches); err != nil {
		f.Close()
		return fmt.Errorf("render summary: %w", err)
	}
	return f.Close()
}

func printAnalyzeSummary(r *AnalyzeResult) {
	fmt.Printf("Analyzed %d transactions (%d rows skipped)\n", r.Transactions, r.SkippedRows)
	fmt.Printf("Batches: %d  Edges: %d  Gallons moved: %.2f\n", r.Batches, r.Edges, r.TotalGallons)
	fmt.Printf("On hand: %d  Shipped: %d\n", r.OnHand, r.Shipped)
	fmt.Printf("Artifacts written to %s\n", r.OutputDir)
}
