// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export flattens a frozen lineage graph into the run's output
// artifacts: relational CSV rows, the normalized transaction dump, and
// the complete JSON document. Row and edge ordering is deterministic so
// identical input always produces identical artifacts.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

// Artifact file names written by WriteAll.
const (
	FileLineage       = "batch_lineage.csv"
	FileLineageOnHand = "batch_lineage_on_hand.csv"
	FileTransactions  = "all_transactions.csv"
	FileDocument      = "complete_lineage.json"
)

// Filter selects which destination batches the flattened rows cover.
type Filter int

const (
	// FilterAll includes every batch in the graph.
	FilterAll Filter = iota

	// FilterOnHand includes only batches currently on hand.
	FilterOnHand
)

// String returns the string representation of the Filter.
func (f Filter) String() string {
	if f == FilterOnHand {
		return "on-hand"
	}
	return "all"
}

// ParseFilter maps a CLI filter value to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", "all":
		return FilterAll, nil
	case "on-hand", "onhand":
		return FilterOnHand, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q (want all or on-hand)", s)
	}
}

// Row is one flattened lineage record: the aggregate contribution of
// one source batch into one destination batch. Origin batches emit a
// single row with an empty Source.
type Row struct {
	Destination   string
	Source        string
	Gallons       float64
	CurrentVolume float64
	OnHand        bool
	HasLeft       bool
}

// rowHeaders are the flattened CSV columns, in output order.
var rowHeaders = []string{
	"Destination_Batch",
	"Source_Batch",
	"Gallons_Contributed",
	"Destination_Current_Volume",
	"Destination_Is_On_Hand",
	"Destination_Has_Left",
}

// Flatten aggregates the graph's edges into relational rows: one row
// per (destination, source) pair with summed gallons. Rows are ordered
// by destination ascending, then source ascending.
func Flatten(g *lineage.Graph, filter Filter) []Row {
	rows := make([]Row, 0, g.EdgeCount())
	for _, b := range g.Batches() {
		if filter == FilterOnHand && b.Status != lineage.StatusOnHand {
			continue
		}

		totals := make(map[string]float64)
		for _, e := range g.InboundEdges(b.Name) {
			totals[e.Source] += e.Gallons
		}

		if len(totals) == 0 {
			rows = append(rows, Row{
				Destination:   b.Name,
				CurrentVolume: b.CurrentVolume,
				OnHand:        b.Status == lineage.StatusOnHand,
				HasLeft:       b.HasLeft,
			})
			continue
		}

		sources := make([]string, 0, len(totals))
		for s := range totals {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			rows = append(rows, Row{
				Destination:   b.Name,
				Source:        s,
				Gallons:       totals[s],
				CurrentVolume: b.CurrentVolume,
				OnHand:        b.Status == lineage.StatusOnHand,
				HasLeft:       b.HasLeft,
			})
		}
	}
	return rows
}

// Metadata summarizes one export run.
type Metadata struct {
	RunID        string    `json:"run_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Transactions int       `json:"total_transactions"`
	Batches      int       `json:"total_batches"`
	Edges        int       `json:"total_edges"`
	TotalGallons float64   `json:"total_gallons_contributed"`
	OnHand       int       `json:"on_hand_batches"`
	Shipped      int       `json:"shipped_batches"`
}

// Document is the complete JSON artifact: run metadata plus the full
// edge and transaction lists in deterministic order.
type Document struct {
	Metadata     Metadata             `json:"metadata"`
	Edges        []lineage.Edge       `json:"edges"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// ReadDocument reloads an exported document. The edge and transaction
// sets round-trip losslessly.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode lineage document: %w", err)
	}
	return &doc, nil
}

// Exporter writes the run artifacts for one frozen graph.
//
// # Thread Safety
//
// Safe for concurrent use; the graph is read-only.
type Exporter struct {
	g      *lineage.Graph
	log    *logging.Logger
	runID  string
	filter Filter
	now    func() time.Time
}

// Option mutates an Exporter.
type Option func(*Exporter)

// WithLogger sets the exporter's logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Exporter) {
		e.log = log
	}
}

// WithRunID pins the run identifier. Used by tests and replayed runs.
func WithRunID(id string) Option {
	return func(e *Exporter) {
		e.runID = id
	}
}

// WithFilter restricts the primary lineage CSV to the given filter.
// The on-hand artifact always uses FilterOnHand.
func WithFilter(f Filter) Option {
	return func(e *Exporter) {
		e.filter = f
	}
}

// WithClock pins the generated-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// New creates an Exporter over the frozen graph.
func New(g *lineage.Graph, opts ...Option) *Exporter {
	e := &Exporter{
		g:     g,
		log:   logging.Default(),
		runID: uuid.NewString(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID returns the exporter's run identifier.
func (e *Exporter) RunID() string {
	return e.runID
}

// Document builds the complete JSON document. Edges are ordered by
// (destination, source, op id); transactions keep graph scan order.
func (e *Exporter) Document() *Document {
	stats := e.g.Stats()
	edges := e.g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Destination != edges[j].Destination {
			return edges[i].Destination < edges[j].Destination
		}
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].OpID < edges[j].OpID
	})

	return &Document{
		Metadata: Metadata{
			RunID:        e.runID,
			GeneratedAt:  e.now().UTC(),
			Transactions: stats.Transactions,
			Batches:      stats.Batches,
			Edges:        stats.Edges,
			TotalGallons: stats.TotalGallons,
			OnHand:       stats.OnHand,
			Shipped:      stats.Shipped,
		},
		Edges:        edges,
		Transactions: e.g.Transactions(),
	}
}

// WriteLineageCSV writes the flattened rows for the filter.
func (e *Exporter) WriteLineageCSV(w io.Writer, filter Filter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rowHeaders); err != nil {
		return fmt.Errorf("write lineage header: %w", err)
	}
	for _, row := range Flatten(e.g, filter) {
		record := []string{
			row.Destination,
			row.Source,
			formatGallons(row.Gallons),
			formatGallons(row.CurrentVolume),
			strconv.FormatBool(row.OnHand),
			strconv.FormatBool(row.HasLeft),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write lineage row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTransactionsCSV dumps the normalized transactions in scan order.
func (e *Exporter) WriteTransactionsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Headers()); err != nil {
		return fmt.Errorf("write transaction header: %w", err)
	}
	for _, t := range e.g.Transactions() {
		if err := cw.Write(t.Record()); err != nil {
			return fmt.Errorf("write transaction row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the complete lineage document.
func (e *Exporter) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e.Document()); err != nil {
		return fmt.Errorf("encode lineage document: %w", err)
	}
	return nil
}

// WriteAll writes all four run artifacts under dir, creating it if
// needed. The artifacts are independent and are written concurrently.
func (e *Exporter) WriteAll(ctx context.Context, dir string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return e.writeFile(ctx, filepath.Join(dir, FileLineage), func(w io.Writer) error {
			return e.WriteLineageCSV(w, e.filter)
		})
	})
	grp.Go(func() error {
		return e.writeFile(ctx, filepath.Join(dir, FileLineageOnHand), func(w io.Writer) error {
			return e.WriteLineageCSV(w, FilterOnHand)
		})
	})
	grp.Go(func() error {
		return e.writeFile(ctx, filepath.Join(dir, FileTransactions), e.WriteTransactionsCSV)
	})
	grp.Go(func() error {
		return e.writeFile(ctx, filepath.Join(dir, FileDocument), e.WriteJSON)
	})
	if err := grp.Wait(); err != nil {
		return err
	}

	e.log.Info("export complete",
		"run_id", e.runID,
		"output_dir", dir,
		"artifacts", 4)
	return nil
}

// writeFile creates path and streams one artifact into it.
func (e *Exporter) writeFile(ctx context.Context, path string, write func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// formatGallons renders a volume without trailing zeros.
func formatGallons(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
