// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vessels loads the vessel inventory snapshot and
// cross-references it against transaction-derived on-hand batches. The
// snapshot is an independent data source, so disagreement between the
// two is reported, never fatal.
package vessels

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Vessel is one entry of the vessel inventory snapshot. Snapshot files
// carry many more fields; only the batch linkage matters here.
type Vessel struct {
	BatchName string  `json:"wine_batch_name"`
	Volume    float64 `json:"volume_value"`
}

// Load decodes a vessel snapshot (a JSON array of vessel objects).
func Load(r io.Reader) ([]Vessel, error) {
	var out []Vessel
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vessel snapshot: %w", err)
	}
	return out, nil
}

// LoadFile loads a vessel snapshot from path.
func LoadFile(path string) ([]Vessel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vessel snapshot %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// OnHandBatches returns the sorted, de-duplicated batch names that hold
// positive volume in any vessel. Vessels without a batch name are
// ignored.
func OnHandBatches(vs []Vessel) []string {
	seen := make(map[string]bool)
	for _, v := range vs {
		if v.Volume > 0 && v.BatchName != "" {
			seen[v.BatchName] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CrossReference partitions two on-hand batch sets by agreement.
type CrossReference struct {
	// InBoth holds batches on hand in both sources.
	InBoth []string

	// OnlyInTransactions holds batches the transaction scan considers
	// on hand but no vessel currently carries.
	OnlyInTransactions []string

	// OnlyInVessels holds batches with vessel volume that the
	// transaction scan does not mark on hand.
	OnlyInVessels []string
}

// CrossRef compares transaction-derived and vessel-derived on-hand
// batch names. All partitions are sorted ascending.
func CrossRef(fromTransactions, fromVessels []string) CrossReference {
	txSet := make(map[string]bool, len(fromTransactions))
	for _, name := range fromTransactions {
		txSet[name] = true
	}
	vesselSet := make(map[string]bool, len(fromVessels))
	for _, name := range fromVessels {
		vesselSet[name] = true
	}

	var xref CrossReference
	for name := range txSet {
		if vesselSet[name] {
			xref.InBoth = append(xref.InBoth, name)
		} else {
			xref.OnlyInTransactions = append(xref.OnlyInTransactions, name)
		}
	}
	for name := range vesselSet {
		if !txSet[name] {
			xref.OnlyInVessels = append(xref.OnlyInVessels, name)
		}
	}
	sort.Strings(xref.InBoth)
	sort.Strings(xref.OnlyInTransactions)
	sort.Strings(xref.OnlyInVessels)
	return xref
}
