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
	"context"
	"sort"
)

// QueryConfig configures a Querier.
type QueryConfig struct {
	// CacheSize bounds the ancestry tree memoization cache.
	CacheSize int
}

// DefaultQueryConfig returns the default query configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{CacheSize: 256}
}

// QueryOption mutates QueryConfig.
type QueryOption func(*QueryConfig)

// WithCacheSize sets the ancestry tree cache capacity.
func WithCacheSize(n int) QueryOption {
	return func(c *QueryConfig) {
		c.CacheSize = n
	}
}

// Tree is one node of a recursive ancestry expansion. Children carry
// the aggregate gallons they contributed to this node.
type Tree struct {
	Batch         string  `json:"batch_name"`
	CurrentVolume float64 `json:"current_volume"`
	Status        string  `json:"status"`

	// Gallons is the aggregate volume this node contributed to its
	// parent. Zero for the root.
	Gallons float64 `json:"gallons_contributed,omitempty"`

	// Origin marks a batch with no recorded ancestry.
	Origin bool `json:"origin,omitempty"`

	// Cycle marks a node cut because its batch already appears on the
	// path from the root. Cycle nodes are never expanded.
	Cycle bool `json:"cycle_detected,omitempty"`

	Children []*Tree `json:"contributing_batches,omitempty"`
}

// Querier answers lineage queries against a frozen graph.
//
// # Thread Safety
//
// Safe for concurrent use.
type Querier struct {
	g     *Graph
	trees *LRUCache[string, *Tree]
}

// NewQuerier creates a Querier over the frozen graph.
func NewQuerier(g *Graph, opts ...QueryOption) *Querier {
	config := DefaultQueryConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Querier{
		g:     g,
		trees: NewLRUCache[string, *Tree](config.CacheSize),
	}
}

// contribution is one aggregated parent-to-source volume sum.
type contribution struct {
	source  string
	gallons float64
}

// DirectLineage returns the aggregate per-source contributions into the
// batch, ordered by descending gallons, ties by ascending source name.
// An origin batch returns an empty slice.
func (q *Querier) DirectLineage(batch string) ([]Edge, error) {
	if _, ok := q.g.Batch(batch); !ok {
		return nil, &BatchNotFoundError{Batch: batch}
	}
	out := make([]Edge, 0)
	for _, c := range q.contributions(batch) {
		out = append(out, Edge{
			Source:      c.source,
			Destination: batch,
			Gallons:     c.gallons,
		})
	}
	return out, nil
}

// FullTree recursively expands the complete ancestry of the batch.
//
// # Description
//
// The traversal tracks visited batches per root-to-node path, not
// globally: a batch reachable through two distinct paths (a diamond)
// is expanded in both, while a batch already on the current path is
// emitted as a Cycle marker leaf. Complete root trees are memoized;
// subtrees are not, because cycle cuts depend on the path above them.
//
// # Inputs
//
//   - ctx: must not be nil; checked at every node expansion
//   - batch: root batch name
//
// # Outputs
//
//   - *Tree: the root of the expansion
//   - error: ErrNilContext, BatchNotFoundError, or ctx.Err()
func (q *Querier) FullTree(ctx context.Context, batch string) (*Tree, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if _, ok := q.g.Batch(batch); !ok {
		return nil, &BatchNotFoundError{Batch: batch}
	}
	if tree, ok := q.trees.Get(batch); ok {
		return tree, nil
	}

	path := make(map[string]bool)
	tree, err := q.expand(ctx, batch, 0, path)
	if err != nil {
		return nil, err
	}
	q.trees.Set(batch, tree)
	return tree, nil
}

// expand builds the subtree rooted at batch. path holds the batches on
// the root-to-batch path and is restored before returning.
func (q *Querier) expand(ctx context.Context, batch string, gallons float64, path map[string]bool) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, _ := q.g.Batch(batch)
	node := &Tree{
		Batch:         batch,
		CurrentVolume: b.CurrentVolume,
		Status:        b.Status.String(),
		Gallons:       gallons,
		Origin:        b.Origin,
	}

	if path[batch] {
		node.Cycle = true
		return node, nil
	}

	path[batch] = true
	defer delete(path, batch)

	for _, c := range q.contributions(batch) {
		child, err := q.expand(ctx, c.source, c.gallons, path)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// contributions aggregates the inbound edges of batch by source and
// orders them by descending gallons, ties by ascending source name.
func (q *Querier) contributions(batch string) []contribution {
	totals := make(map[string]float64)
	for _, e := range q.g.InboundEdges(batch) {
		totals[e.Source] += e.Gallons
	}
	out := make([]contribution, 0, len(totals))
	for source, gallons := range totals {
		out = append(out, contribution{source: source, gallons: gallons})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].gallons != out[j].gallons {
			return out[i].gallons > out[j].gallons
		}
		return out[i].source < out[j].source
	})
	return out
}

// OnHandBatches returns the names of all on-hand batches in ascending
// order.
func (q *Querier) OnHandBatches() []string {
	return q.byStatus(StatusOnHand)
}

// ShippedBatches returns the names of all shipped batches in ascending
// order.
func (q *Querier) ShippedBatches() []string {
	return q.byStatus(StatusShipped)
}

func (q *Querier) byStatus(status Status) []string {
	out := make([]string, 0)
	for _, name := range q.g.BatchNames() {
		if b, ok := q.g.Batch(name); ok && b.Status == status {
			out = append(out, name)
		}
	}
	return out
}
