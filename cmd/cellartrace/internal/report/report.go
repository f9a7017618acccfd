// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders human-readable lineage and inventory reports.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/lineage"
	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/vessels"
)

const (
	bannerWide   = 100
	bannerNarrow = 80

	// warnListLimit caps the batches named per cross-reference warning.
	warnListLimit = 10
)

// Renderer writes plain-text reports for one frozen graph.
type Renderer struct {
	g   *lineage.Graph
	q   *lineage.Querier
	now func() time.Time
}

// Option mutates a Renderer.
type Option func(*Renderer)

// WithClock pins the generated-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates a Renderer over the graph and its querier.
func NewRenderer(g *lineage.Graph, q *lineage.Querier, opts ...Option) *Renderer {
	r := &Renderer{g: g, q: q, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BatchReport writes the lineage report for one batch: status, current
// volume, per-source contributions, and the incoming and outgoing
// transactions that touch the batch.
func (r *Renderer) BatchReport(w io.Writer, batch string) error {
	b, ok := r.g.Batch(batch)
	if !ok {
		return &lineage.BatchNotFoundError{Batch: batch}
	}

	contribs, err := r.q.DirectLineage(batch)
	if err != nil {
		return err
	}
	// Report convention is alphabetical, unlike query ordering.
	sort.Slice(contribs, func(i, j int) bool {
		return contribs[i].Source < contribs[j].Source
	})

	var incoming, outgoing []ledger.Transaction
	for _, t := range r.g.Transactions() {
		if !t.OpType.MovesVolume() || t.FromBatch == "" || t.FromBatch == t.ToBatch {
			continue
		}
		if t.ToBatch == batch {
			incoming = append(incoming, t)
		}
		if t.FromBatch == batch {
			outgoing = append(outgoing, t)
		}
	}

	var sb strings.Builder
	banner := strings.Repeat("=", bannerNarrow)
	rule := strings.Repeat("-", bannerNarrow)

	fmt.Fprintf(&sb, "%s\n", banner)
	fmt.Fprintf(&sb, "LINEAGE REPORT FOR: %s\n", batch)
	fmt.Fprintf(&sb, "%s\n", banner)
	fmt.Fprintf(&sb, "Status: %s\n", b.Status)
	fmt.Fprintf(&sb, "Current Volume: %.2f gallons\n\n", b.CurrentVolume)

	if len(contribs) > 0 {
		fmt.Fprintf(&sb, "CONTRIBUTING BATCHES (%d):\n%s\n", len(contribs), rule)
		for _, c := range contribs {
			fmt.Fprintf(&sb, "  %-30s : %10.2f gallons\n", c.Source, c.Gallons)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No contributing batches (this may be an original receipt)\n\n")
	}

	if len(incoming) > 0 {
		fmt.Fprintf(&sb, "INCOMING TRANSACTIONS (%d):\n%s\n", len(incoming), rule)
		writeTransactionLines(&sb, incoming)
		sb.WriteString("\n")
	}
	if len(outgoing) > 0 {
		fmt.Fprintf(&sb, "OUTGOING TRANSACTIONS (%d):\n%s\n", len(outgoing), rule)
		writeTransactionLines(&sb, outgoing)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "%s\n", banner)
	_, err = io.WriteString(w, sb.String())
	return err
}

func writeTransactionLines(sb *strings.Builder, txs []ledger.Transaction) {
	for _, t := range txs {
		fmt.Fprintf(sb, "  %-12s %-12s %-12s %-20s -> %-20s %8.2f gal\n",
			t.OpDate.Format(ledger.DateLayout), t.OpID, t.OpType,
			t.FromBatch, t.ToBatch, t.Net)
	}
}

// writeWarnList writes a capped, labeled batch list, or nothing when
// the list is empty.
func writeWarnList(sb *strings.Builder, label string, batches []string) {
	if len(batches) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s\n", label)
	for i, name := range batches {
		if i == warnListLimit {
			fmt.Fprintf(sb, "  ... and %d more\n", len(batches)-warnListLimit)
			break
		}
		fmt.Fprintf(sb, "  - %s\n", name)
	}
	sb.WriteString("\n")
}

// Summary writes the inventory summary: on-hand counts, the vessel
// cross-reference when a snapshot was loaded, and the per-batch volume
// table with a grand total. vesselBatches nil means no snapshot.
func (r *Renderer) Summary(w io.Writer, vesselBatches []string) error {
	onHand := r.q.OnHandBatches()

	var sb strings.Builder
	banner := strings.Repeat("=", bannerWide)
	rule := strings.Repeat("-", bannerWide)

	fmt.Fprintf(&sb, "%s\n", banner)
	sb.WriteString("INVENTORY LOTS ANALYSIS SUMMARY\n")
	fmt.Fprintf(&sb, "%s\n", banner)
	fmt.Fprintf(&sb, "Generated: %s\n\n", r.now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&sb, "On-hand batches from transaction data: %d\n", len(onHand))

	if vesselBatches != nil {
		xref := vessels.CrossRef(onHand, vesselBatches)
		fmt.Fprintf(&sb, "Batches with volume from vessel data: %d\n", len(vesselBatches))
		fmt.Fprintf(&sb, "Batches found in both sources: %d\n", len(xref.InBoth))
		fmt.Fprintf(&sb, "Batches only in transactions: %d\n", len(xref.OnlyInTransactions))
		fmt.Fprintf(&sb, "Batches only in vessels: %d\n\n", len(xref.OnlyInVessels))

		writeWarnList(&sb, "WARNING: Batches in transactions but not in vessel data:",
			xref.OnlyInTransactions)
		writeWarnList(&sb, "NOTE: Batches in vessel data but not marked as on-hand in transactions:",
			xref.OnlyInVessels)
	}

	fmt.Fprintf(&sb, "%s\n", banner)
	sb.WriteString("ON-HAND INVENTORY DETAILS\n")
	fmt.Fprintf(&sb, "%s\n", banner)
	fmt.Fprintf(&sb, "%-40s %-15s %-20s\n", "Batch Name", "Volume (gal)", "Contributing Batches")
	fmt.Fprintf(&sb, "%s\n", rule)

	all := make(map[string]bool, len(onHand))
	for _, name := range onHand {
		all[name] = true
	}
	for _, name := range vesselBatches {
		all[name] = true
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var total float64
	for _, name := range names {
		b, ok := r.g.Batch(name)
		if !ok {
			// Vessel snapshot knows a batch the transactions never saw.
			fmt.Fprintf(&sb, "%-40s %-15s %-20s\n", name, "N/A", "N/A")
			continue
		}
		total += b.CurrentVolume
		contribs, err := r.q.DirectLineage(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "%-40s %13.2f   %18d\n",
			name, b.CurrentVolume, len(contribs))
	}

	fmt.Fprintf(&sb, "%s\n", rule)
	fmt.Fprintf(&sb, "%-40s %13.2f\n", "Total Volume:", total)
	fmt.Fprintf(&sb, "%s\n", banner)

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteDetailedReports writes one lineage report file per batch under
// dir, named <batch>_lineage.txt with path separators made safe.
func (r *Renderer) WriteDetailedReports(dir string, batches []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir %s: %w", dir, err)
	}

	sorted := make([]string, len(batches))
	copy(sorted, batches)
	sort.Strings(sorted)

	for _, batch := range sorted {
		path := filepath.Join(dir, SafeFileName(batch)+"_lineage.txt")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report %s: %w", path, err)
		}
		if err := r.BatchReport(f, batch); err != nil {
			f.Close()
			return fmt.Errorf("render report for %s: %w", batch, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close report %s: %w", path, err)
		}
	}
	return nil
}

// SafeFileName replaces path separators in a batch name so it can be
// used as a file name.
func SafeFileName(batch string) string {
	s := strings.ReplaceAll(batch, "/", "_")
	return strings.ReplaceAll(s, "\\", "_")
}
