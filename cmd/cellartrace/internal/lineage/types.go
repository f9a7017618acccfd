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
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is still accepting updates.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen. All queries run
	// against a frozen graph.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// Status is a batch's resolved inventory status.
type Status int

const (
	// StatusUnknown means no direct evidence exists for the batch; it is
	// typically only inferred through ancestry.
	StatusUnknown Status = iota

	// StatusOnHand means the batch is currently in inventory, per its
	// latest snapshot or positive residual volume.
	StatusOnHand

	// StatusShipped means the batch's volume was fully transferred or
	// consumed downstream.
	StatusShipped
)

// String returns the string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusOnHand:
		return "ON-HAND"
	case StatusShipped:
		return "SHIPPED"
	default:
		return "UNKNOWN"
	}
}

// Edge records one volume contribution from a source batch to a
// destination batch. Multiple edges may exist between the same ordered
// pair; reporting aggregates them by summation.
type Edge struct {
	Source      string  `json:"source_batch"`
	Destination string  `json:"destination_batch"`
	Gallons     float64 `json:"gallons_contributed"`
	OpID        string  `json:"op_id"`
}

// Batch is one tracked vessel-batch. Batches are mutable during build
// and frozen afterwards; query results expose copies.
type Batch struct {
	// Name uniquely identifies the batch within a run.
	Name string

	// CurrentVolume is the running volume in gallons after the full scan,
	// including any snapshot override.
	CurrentVolume float64

	// Status is the resolved inventory status.
	Status Status

	// Origin is true when the batch has no recorded ancestry: it first
	// appeared via a receipt, or was only ever referenced as a source.
	Origin bool

	// HasLeft is true when the batch was fully transferred or consumed
	// downstream (non-positive residual with outbound flow).
	HasLeft bool

	inbound     []int // edge indices, scan order
	outbound    []int
	hasOutbound bool
	lastIsSnap  bool // the last applicable event was an On-Hand snapshot
}

// Graph is the frozen lineage graph: every batch referenced by the
// transaction scan plus the weighted contribution edges between them.
//
// # Thread Safety
//
// After Build returns, the graph is read-only and safe for concurrent
// use without locking.
type Graph struct {
	state   GraphState
	batches map[string]*Batch
	names   []string // sorted, computed at freeze
	edges   []Edge
	txs     []ledger.Transaction // sorted scan order
}

// State returns the graph lifecycle state.
func (g *Graph) State() GraphState {
	return g.state
}

// Batch returns a copy of the named batch.
func (g *Graph) Batch(name string) (Batch, bool) {
	b, ok := g.batches[name]
	if !ok {
		return Batch{}, false
	}
	return *b, true
}

// BatchNames returns all batch names in ascending order.
func (g *Graph) BatchNames() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// BatchCount returns the number of tracked batches.
func (g *Graph) BatchCount() int {
	return len(g.batches)
}

// Edges returns a copy of all contribution edges in scan order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgeCount returns the number of contribution edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// InboundEdges returns the edges whose destination is the named batch,
// in scan order.
func (g *Graph) InboundEdges(name string) []Edge {
	b, ok := g.batches[name]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(b.inbound))
	for _, i := range b.inbound {
		out = append(out, g.edges[i])
	}
	return out
}

// OutboundEdges returns the edges whose source is the named batch, in
// scan order.
func (g *Graph) OutboundEdges(name string) []Edge {
	b, ok := g.batches[name]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(b.outbound))
	for _, i := range b.outbound {
		out = append(out, g.edges[i])
	}
	return out
}

// Transactions returns the scanned transactions in build order
// (ascending op date, ties by op id).
func (g *Graph) Transactions() []ledger.Transaction {
	out := make([]ledger.Transaction, len(g.txs))
	copy(out, g.txs)
	return out
}

// TransactionCount returns the number of scanned transactions.
func (g *Graph) TransactionCount() int {
	return len(g.txs)
}

// Stats summarizes a frozen graph for run reporting and export metadata.
type Stats struct {
	Transactions int     `json:"total_transactions"`
	Batches      int     `json:"total_batches"`
	Edges        int     `json:"total_edges"`
	TotalGallons float64 `json:"total_gallons_contributed"`
	OnHand       int     `json:"on_hand_batches"`
	Shipped      int     `json:"shipped_batches"`
}

// Stats computes summary counters. TotalGallons is the sum of gallons
// over all contribution edges.
func (g *Graph) Stats() Stats {
	s := Stats{
		Transactions: len(g.txs),
		Batches:      len(g.batches),
		Edges:        len(g.edges),
	}
	for _, e := range g.edges {
		s.TotalGallons += e.Gallons
	}
	for _, b := range g.batches {
		switch b.Status {
		case StatusOnHand:
			s.OnHand++
		case StatusShipped:
			s.Shipped++
		}
	}
	return s
}

// Batches returns copies of all batches in ascending name order.
func (g *Graph) Batches() []Batch {
	out := make([]Batch, 0, len(g.batches))
	for _, name := range g.names {
		out = append(out, *g.batches[name])
	}
	return out
}

// freeze finalizes derived fields and flips the graph read-only.
func (g *Graph) freeze() {
	g.names = make([]string, 0, len(g.batches))
	for name, b := range g.batches {
		g.names = append(g.names, name)

		b.Origin = len(b.inbound) == 0
		b.HasLeft = b.CurrentVolume <= 0 && b.hasOutbound
		b.Status = resolveStatus(b)
	}
	sort.Strings(g.names)
	g.state = GraphStateReadOnly
}
