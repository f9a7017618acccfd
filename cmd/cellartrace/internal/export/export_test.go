// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(ledger.DateLayout, s)
	require.NoError(t, err)
	return parsed
}

func testGraph(t *testing.T) *lineage.Graph {
	t.Helper()
	log := logging.New(logging.Config{Quiet: true})

	mk := func(date, id string, op ledger.OpType, from, to string, net float64) ledger.Transaction {
		return ledger.Transaction{
			OpDate:    day(t, date),
			OpID:      id,
			OpType:    op,
			FromBatch: from,
			ToBatch:   to,
			Net:       net,
		}
	}
	return lineage.Build([]ledger.Transaction{
		mk("2024-01-01", "OP-1", ledger.OpReceipt, "", "A", 100),
		mk("2024-01-02", "OP-2", ledger.OpTransfer, "A", "B", 60),
		mk("2024-01-03", "OP-3", ledger.OpTransfer, "A", "B", 40),
		mk("2024-01-04", "OP-4", ledger.OpBlend, "B", "C", 70),
	}, lineage.WithLogger(log))
}

func fixedExporter(t *testing.T, g *lineage.Graph) *Exporter {
	t.Helper()
	log := logging.New(logging.Config{Quiet: true})
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return New(g,
		WithLogger(log),
		WithRunID("run-test"),
		WithClock(func() time.Time { return at }))
}

func TestFlatten_AggregatesPairs(t *testing.T) {
	rows := Flatten(testGraph(t), FilterAll)
	require.Len(t, rows, 3)

	// A is origin: single row, empty source.
	assert.Equal(t, "A", rows[0].Destination)
	assert.Empty(t, rows[0].Source)
	assert.Zero(t, rows[0].Gallons)

	// B aggregates the two transfers from A.
	assert.Equal(t, "B", rows[1].Destination)
	assert.Equal(t, "A", rows[1].Source)
	assert.InDelta(t, 100, rows[1].Gallons, 1e-9)

	assert.Equal(t, "C", rows[2].Destination)
	assert.Equal(t, "B", rows[2].Source)
}

func TestFlatten_OnHandFilter(t *testing.T) {
	rows := Flatten(testGraph(t), FilterOnHand)
	// A is fully shipped, B and C remain.
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Destination)
	assert.True(t, rows[0].OnHand)
	assert.Equal(t, "C", rows[1].Destination)
}

func TestFlatten_OrderedByDestThenSource(t *testing.T) {
	log := logging.New(logging.Config{Quiet: true})
	g := lineage.Build([]ledger.Transaction{
		{OpDate: day(t, "2024-01-01"), OpID: "OP-1", OpType: ledger.OpTransfer, FromBatch: "Z", ToBatch: "D", Net: 5},
		{OpDate: day(t, "2024-01-02"), OpID: "OP-2", OpType: ledger.OpTransfer, FromBatch: "M", ToBatch: "D", Net: 5},
	}, lineage.WithLogger(log))

	rows := Flatten(g, FilterAll)
	var dRows []Row
	for _, r := range rows {
		if r.Destination == "D" {
			dRows = append(dRows, r)
		}
	}
	require.Len(t, dRows, 2)
	assert.Equal(t, "M", dRows[0].Source)
	assert.Equal(t, "Z", dRows[1].Source)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("on-hand")
	require.NoError(t, err)
	assert.Equal(t, FilterOnHand, f)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("bogus")
	assert.Error(t, err)
}

func TestWriteLineageCSV(t *testing.T) {
	e := fixedExporter(t, testGraph(t))

	var buf bytes.Buffer
	require.NoError(t, e.WriteLineageCSV(&buf, FilterAll))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 rows
	assert.Equal(t, rowHeaders, records[0])
	assert.Equal(t, []string{"B", "A", "100", "30", "true", "false"}, records[2])
}

func TestWriteTransactionsCSV_ScanOrder(t *testing.T) {
	e := fixedExporter(t, testGraph(t))

	var buf bytes.Buffer
	require.NoError(t, e.WriteTransactionsCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, ledger.Headers(), records[0])
	assert.Equal(t, "OP-1", records[1][1])
	assert.Equal(t, "OP-4", records[4][1])
}

func TestJSONRoundTrip(t *testing.T) {
	e := fixedExporter(t, testGraph(t))

	var buf bytes.Buffer
	require.NoError(t, e.WriteJSON(&buf))

	doc, err := ReadDocument(&buf)
	require.NoError(t, err)

	assert.Equal(t, "run-test", doc.Metadata.RunID)
	assert.Equal(t, 4, doc.Metadata.Transactions)
	assert.Equal(t, 3, doc.Metadata.Batches)
	assert.Equal(t, 3, doc.Metadata.Edges)
	assert.InDelta(t, 170, doc.Metadata.TotalGallons, 1e-9)

	require.Len(t, doc.Edges, 3)
	assert.Equal(t, e.Document().Edges, doc.Edges)
	require.Len(t, doc.Transactions, 4)
	assert.Equal(t, "OP-1", doc.Transactions[0].OpID)
	assert.True(t, doc.Transactions[0].OpDate.Equal(day(t, "2024-01-01")))
}

func TestWriteAll_Artifacts(t *testing.T) {
	e := fixedExporter(t, testGraph(t))
	dir := t.TempDir()

	require.NoError(t, e.WriteAll(context.Background(), dir))

	for _, name := range []string{FileLineage, FileLineageOnHand, FileTransactions, FileDocument} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestWriteAll_ByteIdenticalReruns(t *testing.T) {
	g := testGraph(t)
	first := t.TempDir()
	second := t.TempDir()

	require.NoError(t, fixedExporter(t, g).WriteAll(context.Background(), first))
	require.NoError(t, fixedExporter(t, g).WriteAll(context.Background(), second))

	for _, name := range []string{FileLineage, FileLineageOnHand, FileTransactions, FileDocument} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a, b), "artifact %s differs between runs", name)
	}
}

func TestWriteAll_NilContext(t *testing.T) {
	e := fixedExporter(t, testGraph(t))
	err := e.WriteAll(nil, t.TempDir()) //nolint:staticcheck
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ctx must not be nil")
}

func TestReadDocument_Malformed(t *testing.T) {
	_, err := ReadDocument(strings.NewReader("{not json"))
	assert.Error(t, err)
}
