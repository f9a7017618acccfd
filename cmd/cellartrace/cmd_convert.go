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
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
)

var (
	convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convert a raw transaction export to the normalized CSV schema",
		Long: `Reads a raw cellar export (with columns like "Tx Id" and
"Src Batch Pre") and rewrites it with the normalized headers the
analysis commands and downstream tools expect. Rows that fail
validation are skipped and counted, matching analyze behavior.`,
		Run: runConvertCommand,
	}

	convertInput  string
	convertOutput string
)

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "",
		"path to the raw CSV export (required)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "transactions_simple.csv",
		"path for the normalized CSV")
	convertCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(convertCmd)
}

// ConvertResult is the run summary for the convert command.
type ConvertResult struct {
	Rows        int    `json:"rows"`
	SkippedRows int    `json:"skipped_rows"`
	OutputPath  string `json:"output_path"`
}

func runConvertCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	outCfg := OutputConfig{}

	result, err := runConvert()
	if err == nil {
		fmt.Printf("Converted %d rows (%d skipped) to %s\n",
			result.Rows, result.SkippedRows, result.OutputPath)
	}
	os.Exit(OutputResult(outCfg, "convert", start, result, err))
}

func runConvert() (*ConvertResult, error) {
	loaded, err := ledger.NewLoader(log).LoadFile(convertInput)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(convertOutput)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", convertOutput, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ledger.Headers()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, t := range loaded.Transactions {
		if err := w.Write(t.Record()); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &ConvertResult{
		Rows:        len(loaded.Transactions),
		SkippedRows: loaded.ErrorCount(),
		OutputPath:  convertOutput,
	}, nil
}
