// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for ledger loading.
var (
	// ErrNoUsableRows means every row was skipped during validation.
	// Total absence of usable data is the only fatal load condition.
	ErrNoUsableRows = errors.New("no usable transaction rows after validation")

	// ErrEmptyInput means the input had no header row at all.
	ErrEmptyInput = errors.New("transaction input is empty")
)

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

// Error implements the error interface.
func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("transaction header is missing required columns: %s",
		strings.Join(e.Columns, ", "))
}

// RowError records one skipped input row. Row errors are non-fatal; the
// run continues and surfaces them in the load summary.
type RowError struct {
	// Line is the 1-based input line number (header is line 1).
	Line int

	// Reason describes why the row was skipped.
	Reason string
}

// Error implements the error interface.
func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
