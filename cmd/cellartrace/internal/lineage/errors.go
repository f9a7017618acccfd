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
	"errors"
	"fmt"
)

// Sentinel errors for lineage queries.
var (
	// ErrBatchNotFound indicates the requested batch is not in the graph.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrNilContext indicates a query was called with a nil context.
	ErrNilContext = errors.New("ctx must not be nil")
)

// BatchNotFoundError reports a lookup for a batch the graph does not
// track, carrying the requested name.
type BatchNotFoundError struct {
	Batch string
}

func (e *BatchNotFoundError) Error() string {
	return fmt.Sprintf("batch %q not found in lineage graph", e.Batch)
}

// Unwrap allows errors.Is(err, ErrBatchNotFound).
func (e *BatchNotFoundError) Unwrap() error {
	return ErrBatchNotFound
}
