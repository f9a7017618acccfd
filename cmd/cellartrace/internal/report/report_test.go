// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	log := logging.New(logging.Config{Quiet: true})

	day := func(s string) time.Time {
		parsed, err := time.Parse(ledger.DateLayout, s)
		require.NoError(t, err)
		return parsed
	}
	g := lineage.Build([]ledger.Transaction{
		{OpDate: day("2024-01-01"), OpID: "OP-1", OpType: ledger.OpReceipt, ToBatch: "24CAB-A", Net: 100},
		{OpDate: day("2024-01-02"), OpID: "OP-2", OpType: ledger.OpTransfer, FromBatch: "24CAB-A", ToBatch: "24CAB/RES", Net: 60},
		{OpDate: day("2024-01-03"), OpID: "OP-3", OpType: ledger.OpBlend, FromBatch: "24MERLOT", ToBatch: "24CAB/RES", Net: 20},
	}, lineage.WithLogger(log))
	q := lineage.NewQuerier(g)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewRenderer(g, q, WithClock(func() time.Time { return at }))
}

func TestBatchReport(t *testing.T) {
	r := testRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.BatchReport(&buf, "24CAB/RES"))
	out := buf.String()

	assert.Contains(t, out, "LINEAGE REPORT FOR: 24CAB/RES")
	assert.Contains(t, out, "Status: ON-HAND")
	assert.Contains(t, out, "Current Volume: 80.00 gallons")
	assert.Contains(t, out, "CONTRIBUTING BATCHES (2):")
	assert.Contains(t, out, "INCOMING TRANSACTIONS (2):")

	// Alphabetical contribution order regardless of gallons.
	a := bytes.Index(buf.Bytes(), []byte("24CAB-A"))
	m := bytes.Index(buf.Bytes(), []byte("24MERLOT"))
	assert.Less(t, a, m)
}

func TestBatchReport_Origin(t *testing.T) {
	r := testRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.BatchReport(&buf, "24CAB-A"))
	out := buf.String()

	assert.Contains(t, out, "No contributing batches")
	assert.Contains(t, out, "OUTGOING TRANSACTIONS (1):")
	assert.NotContains(t, out, "INCOMING TRANSACTIONS")
}

func TestBatchReport_NotFound(t *testing.T) {
	r := testRenderer(t)
	err := r.BatchReport(&bytes.Buffer{}, "nope")
	assert.ErrorIs(t, err, lineage.ErrBatchNotFound)
}

func TestSummary_WithoutVessels(t *testing.T) {
	r := testRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Summary(&buf, nil))
	out := buf.String()

	assert.Contains(t, out, "INVENTORY LOTS ANALYSIS SUMMARY")
	assert.Contains(t, out, "Generated: 2024-06-01 12:00:00")
	assert.NotContains(t, out, "vessel data")
	assert.Contains(t, out, "Total Volume:")
}

func TestSummary_WithVesselCrossReference(t *testing.T) {
	r := testRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Summary(&buf, []string{"24CAB/RES", "24ZIN"}))
	out := buf.String()

	assert.Contains(t, out, "Batches with volume from vessel data: 2")
	assert.Contains(t, out, "Batches found in both sources: 1")
	assert.Contains(t, out, "WARNING: Batches in transactions but not in vessel data:")
	assert.Contains(t, out, "  - 24CAB-A")
	assert.Contains(t, out, "NOTE: Batches in vessel data but not marked as on-hand in transactions:")
	assert.Contains(t, out, "  - 24ZIN")

	// 24ZIN exists only in the snapshot, so its row has no volume data.
	assert.Contains(t, out, "N/A")
}

func TestWriteDetailedReports(t *testing.T) {
	r := testRenderer(t)
	dir := t.TempDir()

	require.NoError(t, r.WriteDetailedReports(dir, []string{"24CAB/RES", "24CAB-A"}))

	// Slash in the batch name becomes an underscore.
	data, err := os.ReadFile(filepath.Join(dir, "24CAB_RES_lineage.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "LINEAGE REPORT FOR: 24CAB/RES")

	_, err = os.Stat(filepath.Join(dir, "24CAB-A_lineage.txt"))
	assert.NoError(t, err)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", SafeFileName(`a/b\c`))
}
