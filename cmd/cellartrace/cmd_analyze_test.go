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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/config"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/export"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

const analyzeFixture = `Op Date,Op Id,Op Type,From Vessel,From Batch,To Vessel,To Batch,NET,Loss/Gain Amount (gal),Loss/Gain Reason,Winery
2024-01-01,OP-1,Receipt,,,T-1,24CAB-A,100,,,Westside
2024-01-02,OP-2,Transfer,T-1,24CAB-A,T-2,24CAB-B,60,,,Westside
2024-01-03,OP-3,Blend,T-2,24CAB-B,T-3,24RES,50,,,Eastgate
bad row that will be skipped,,,,,,,,,
`

// setupAnalyze points the analyze flags and globals at a temp workspace.
func setupAnalyze(t *testing.T) (inputPath, outputDir string) {
	t.Helper()
	dir := t.TempDir()
	inputPath = filepath.Join(dir, "transactions.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(analyzeFixture), 0o644))
	outputDir = filepath.Join(dir, "out")

	cfg = config.DefaultConfig()
	log = logging.New(logging.Config{Quiet: true})

	analyzeTransactionFile = inputPath
	analyzeOutputDir = outputDir
	analyzeVesselsFile = ""
	analyzeDetailed = false
	analyzeFilter = "all"
	analyzeJSON = true
	return inputPath, outputDir
}

func TestRunAnalysis_WritesArtifacts(t *testing.T) {
	_, outputDir := setupAnalyze(t)

	result, err := runAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Transactions)
	assert.Equal(t, 1, result.SkippedRows)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, 2, result.Edges)
	assert.NotEmpty(t, result.RunID)

	for _, name := range []string{
		export.FileLineage,
		export.FileLineageOnHand,
		export.FileTransactions,
		export.FileDocument,
		SummaryFileName,
	} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, err, name)
	}

	// Detailed reports are opt-in.
	_, err = os.Stat(filepath.Join(outputDir, DetailedReportsDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestRunAnalysis_DetailedReports(t *testing.T) {
	_, outputDir := setupAnalyze(t)
	analyzeDetailed = true

	_, err := runAnalysis(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(outputDir, DetailedReportsDirName))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunAnalysis_WineryFilter(t *testing.T) {
	setupAnalyze(t)
	cfg.Analysis.Winery = "Westside"

	result, err := runAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Transactions)
}

func TestRunAnalysis_WineryFilterEmpty(t *testing.T) {
	setupAnalyze(t)
	cfg.Analysis.Winery = "Nowhere Cellars"

	_, err := runAnalysis(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoUsableRows)
}

func TestRunAnalysis_MissingInput(t *testing.T) {
	setupAnalyze(t)
	analyzeTransactionFile = filepath.Join(t.TempDir(), "absent.csv")

	_, err := runAnalysis(context.Background())
	assert.Error(t, err)
}

func TestRunAnalysis_BadFilter(t *testing.T) {
	setupAnalyze(t)
	analyzeFilter = "everything"

	_, err := runAnalysis(context.Background())
	assert.Error(t, err)
}

func TestRunAnalysis_MissingVesselsIsNonFatal(t *testing.T) {
	setupAnalyze(t)
	analyzeVesselsFile = filepath.Join(t.TempDir(), "absent.json")

	result, err := runAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Transactions)
}

func TestFilterByWinery(t *testing.T) {
	txs := []ledger.Transaction{
		{OpID: "OP-1", Winery: "Westside"},
		{OpID: "OP-2", Winery: "Eastgate"},
		{OpID: "OP-3", Winery: "Westside"},
	}
	out := filterByWinery(txs, "Westside")
	require.Len(t, out, 2)
	assert.Equal(t, "OP-1", out[0].OpID)
	assert.Equal(t, "OP-3", out[1].OpID)
}
