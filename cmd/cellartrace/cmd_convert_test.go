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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

const rawFixture = `Op Date,Tx Id,Op Type,Src Vessel,Src Batch Pre,Dest Vessel,Dest Batch Post,NET,Loss/Gain Amount (gal),Loss/Gain Reason,Winery
2024-01-01,TX-1,Receipt,,,T-1,24CAB-A,100,,,Westside
2024-01-02,TX-2,Transfer,T-1,24CAB-A,T-2,24CAB-B,60,,,Westside
`

func TestRunConvert_NormalizesRawSchema(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(input, []byte(rawFixture), 0o644))

	log = logging.New(logging.Config{Quiet: true})
	convertInput = input
	convertOutput = filepath.Join(dir, "simple.csv")

	result, err := runConvert()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Zero(t, result.SkippedRows)

	f, err := os.Open(convertOutput)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ledger.Headers(), records[0])
	assert.Equal(t, "TX-1", records[1][1])
	assert.Equal(t, "24CAB-B", records[2][6])
}

func TestRunConvert_MissingInput(t *testing.T) {
	log = logging.New(logging.Config{Quiet: true})
	convertInput = filepath.Join(t.TempDir(), "absent.csv")
	convertOutput = filepath.Join(t.TempDir(), "out.csv")

	_, err := runConvert()
	assert.Error(t, err)
}
