// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lineage builds and queries the batch provenance graph.
//
// Build scans normalized cellar transactions in chronological order
// into a weighted directed graph: batches are nodes, volume
// contributions are edges. The graph freezes after the scan; Querier
// then answers direct lineage, recursive ancestry, and inventory
// status queries against it. Graph data may contain cycles from
// circular blending; traversal handles them with path-scoped cycle
// markers rather than rejecting the data.
package lineage
