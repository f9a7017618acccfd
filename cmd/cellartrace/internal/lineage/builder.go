// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lineage

import (
	"sort"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/internal/ledger"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

// BuildOptions configures a graph build.
type BuildOptions struct {
	Logger *logging.Logger
}

// BuildOption mutates BuildOptions.
type BuildOption func(*BuildOptions)

// WithLogger sets the logger used during the build scan.
func WithLogger(log *logging.Logger) BuildOption {
	return func(o *BuildOptions) {
		o.Logger = log
	}
}

// Build scans the transactions in ascending (op date, op id) order and
// returns the frozen lineage graph.
//
// # Description
//
// Per transaction, the scan applies:
//   - Receipt: credits the destination volume. No inbound edge; the
//     batch is externally sourced.
//   - On-Hand: replaces the destination's running volume with the
//     snapshot value. Snapshots override accumulated history.
//   - Transfer, Blend, Adjustment, Unknown: when a distinct source batch
//     is present, records a weighted edge source -> destination, credits
//     the destination, and debits the source. A missing or identical
//     source is a volume-only self-correction on the destination.
//
// The input slice is not modified. The scan order is load bearing: a
// later snapshot must override earlier flows.
//
// # Inputs
//
//   - txs: normalized transactions, any order
//   - opts: optional build configuration
//
// # Outputs
//
//   - *Graph: frozen graph in GraphStateReadOnly
func Build(txs []ledger.Transaction, opts ...BuildOption) *Graph {
	options := BuildOptions{Logger: logging.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	log := options.Logger

	sorted := make([]ledger.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OpDate.Equal(sorted[j].OpDate) {
			return sorted[i].OpDate.Before(sorted[j].OpDate)
		}
		return sorted[i].OpID < sorted[j].OpID
	})

	g := &Graph{
		state:   GraphStateBuilding,
		batches: make(map[string]*Batch),
		txs:     sorted,
	}

	for _, tx := range sorted {
		dest := g.ensure(tx.ToBatch)

		switch tx.OpType {
		case ledger.OpReceipt:
			dest.CurrentVolume += tx.Net
			dest.lastIsSnap = false

		case ledger.OpOnHand:
			dest.CurrentVolume = tx.Net
			dest.lastIsSnap = true

		default:
			if tx.FromBatch == "" || tx.FromBatch == tx.ToBatch {
				// Single-sided movement: self-correction, no edge.
				dest.CurrentVolume += tx.Net
				dest.lastIsSnap = false
				continue
			}
			src := g.ensure(tx.FromBatch)
			idx := len(g.edges)
			g.edges = append(g.edges, Edge{
				Source:      tx.FromBatch,
				Destination: tx.ToBatch,
				Gallons:     tx.Net,
				OpID:        tx.OpID,
			})
			dest.inbound = append(dest.inbound, idx)
			dest.CurrentVolume += tx.Net
			dest.lastIsSnap = false
			src.outbound = append(src.outbound, idx)
			src.CurrentVolume -= tx.Net
			src.hasOutbound = true
			src.lastIsSnap = false
		}
	}

	g.freeze()

	log.Info("lineage graph built",
		"transactions", len(sorted),
		"batches", len(g.batches),
		"edges", len(g.edges))
	return g
}

// ensure returns the batch for name, creating it on first reference.
func (g *Graph) ensure(name string) *Batch {
	if b, ok := g.batches[name]; ok {
		return b
	}
	b := &Batch{Name: name}
	g.batches[name] = b
	return b
}

// resolveStatus applies the status precedence for a scanned batch.
func resolveStatus(b *Batch) Status {
	switch {
	case b.lastIsSnap:
		return StatusOnHand
	case b.CurrentVolume > 0:
		return StatusOnHand
	case b.hasOutbound:
		return StatusShipped
	default:
		return StatusUnknown
	}
}
