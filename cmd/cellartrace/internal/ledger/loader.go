// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger loads raw transaction records and normalizes them into
// immutable Transaction values.
//
// The loader is deliberately forgiving: a malformed row (missing required
// field, unparseable date, non-numeric amount) is skipped, logged, and
// counted, and the run continues. Only total absence of usable rows is
// reported as an error.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

// txValidate is the shared validator instance for transactions.
// Initialized in init() with the struct-level rules below.
var txValidate *validator.Validate

func init() {
	txValidate = validator.New()
	txValidate.RegisterStructValidation(validateTransaction, Transaction{})
}

// validateTransaction enforces the per-type field invariants:
// every lineage-affecting op needs a destination batch, and transfers
// and blends additionally need a source batch. Receipts and snapshots
// have no source; a single-sided adjustment is allowed (self-correction).
func validateTransaction(sl validator.StructLevel) {
	tx := sl.Current().Interface().(Transaction)

	if tx.OpID == "" {
		sl.ReportError(tx.OpID, "OpID", "OpID", "required", "")
	}
	if tx.OpDate.IsZero() {
		sl.ReportError(tx.OpDate, "OpDate", "OpDate", "required", "")
	}
	if tx.ToBatch == "" {
		sl.ReportError(tx.ToBatch, "ToBatch", "ToBatch", "required", "")
	}

	switch tx.OpType {
	case OpTransfer, OpBlend:
		if tx.FromBatch == "" {
			sl.ReportError(tx.FromBatch, "FromBatch", "FromBatch", "required", "")
		}
	}
}

// column identifies a logical transaction field during header resolution.
type column int

const (
	colOpDate column = iota
	colOpID
	colOpType
	colFromVessel
	colFromBatch
	colToVessel
	colToBatch
	colNet
	colLossGainAmount
	colLossGainReason
	colWinery
	numColumns
)

// columnAliases maps normalized header names to logical columns. The raw
// export schema ("Src Batch Pre", "Dest Batch Post", "Tx Id") is accepted
// alongside the canonical headers so raw exports load without a separate
// conversion step.
var columnAliases = map[string]column{
	"op date":                colOpDate,
	"op id":                  colOpID,
	"tx id":                  colOpID,
	"op type":                colOpType,
	"from vessel":            colFromVessel,
	"src vessel":             colFromVessel,
	"from batch":             colFromBatch,
	"src batch pre":          colFromBatch,
	"to vessel":              colToVessel,
	"dest vessel":            colToVessel,
	"to batch":               colToBatch,
	"dest batch post":        colToBatch,
	"net":                    colNet,
	"loss/gain amount (gal)": colLossGainAmount,
	"loss/gain reason":       colLossGainReason,
	"winery":                 colWinery,
}

// requiredColumns must be present in the header for the file to be
// interpretable at all.
var requiredColumns = map[column]string{
	colOpDate:  ColOpDate,
	colOpID:    ColOpID,
	colOpType:  ColOpType,
	colToBatch: ColToBatch,
	colNet:     ColNet,
}

// dateLayouts are the accepted op date formats, tried in order.
var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// Result holds the outcome of one load: the usable transactions plus a
// record of every skipped row.
type Result struct {
	// Transactions are the normalized rows, in input order.
	Transactions []Transaction

	// RowErrors records each skipped row with its line number and reason.
	RowErrors []RowError
}

// ErrorCount returns the number of skipped rows.
func (r *Result) ErrorCount() int {
	return len(r.RowErrors)
}

// Loader parses raw tabular transaction records.
//
// # Thread Safety
//
// Loader is stateless between calls and safe for concurrent use.
type Loader struct {
	log *logging.Logger
}

// NewLoader creates a Loader. A nil logger falls back to the default.
func NewLoader(log *logging.Logger) *Loader {
	if log == nil {
		log = logging.Default()
	}
	return &Loader{log: log}
}

// LoadFile loads transactions from a CSV file on disk.
//
// # Outputs
//
//   - *Result: Load outcome, nil only when the file cannot be opened.
//   - error: Non-nil when the file is missing/unreadable, the header is
//     unusable, or no usable rows survive validation.
func (l *Loader) LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transaction file %s: %w", path, err)
	}
	defer f.Close()

	l.log.Info("loading transactions", "path", path)
	return l.Load(f)
}

// Load loads transactions from CSV data.
//
// The first record is the header; columns are resolved by name with
// alias support, so both the canonical and the raw export schema are
// accepted. Rows that fail validation are skipped and counted, never
// fatal. A result with zero usable rows returns ErrNoUsableRows.
func (l *Loader) Load(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row width checked against the header below
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction header: %w", err)
	}

	index, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	line := 1 // header line

	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// Recoverable CSV syntax problem: skip the row, keep going.
			result.skip(l.log, line, fmt.Sprintf("malformed CSV record: %v", err))
			continue
		}

		tx, reason := parseRow(index, record)
		if reason != "" {
			result.skip(l.log, line, reason)
			continue
		}

		result.Transactions = append(result.Transactions, tx)
	}

	l.log.Info("transactions loaded",
		"loaded", len(result.Transactions),
		"skipped", result.ErrorCount(),
	)

	if len(result.Transactions) == 0 {
		return result, ErrNoUsableRows
	}
	return result, nil
}

// skip records and logs one skipped row.
func (r *Result) skip(log *logging.Logger, line int, reason string) {
	r.RowErrors = append(r.RowErrors, RowError{Line: line, Reason: reason})
	log.Warn("skipping transaction row", "line", line, "reason", reason)
}

// resolveHeader maps header positions to logical columns.
func resolveHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}

	for pos, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if col, ok := columnAliases[key]; ok && index[col] == -1 {
			index[col] = pos
		}
	}

	var missing []string
	for col, name := range requiredColumns {
		if index[col] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		// Deterministic error message regardless of map iteration order.
		sort.Strings(missing)
		return index, &MissingColumnsError{Columns: missing}
	}
	return index, nil
}

// parseRow converts one CSV record into a Transaction. A non-empty reason
// means the row must be skipped.
func parseRow(index [numColumns]int, record []string) (Transaction, string) {
	field := func(col column) string {
		pos := index[col]
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	rawType := field(colOpType)
	opType := ParseOpType(rawType)

	tx := Transaction{
		OpID:           field(colOpID),
		OpType:         opType,
		FromVessel:     field(colFromVessel),
		FromBatch:      field(colFromBatch),
		ToVessel:       field(colToVessel),
		ToBatch:        field(colToBatch),
		LossGainReason: field(colLossGainReason),
		Winery:         field(colWinery),
	}

	date, err := parseDate(field(colOpDate))
	if err != nil {
		return tx, fmt.Sprintf("bad op date %q", field(colOpDate))
	}
	tx.OpDate = date

	net, err := parseGallons(field(colNet))
	if err != nil {
		return tx, fmt.Sprintf("non-numeric NET %q", field(colNet))
	}
	tx.Net = net

	lossGain, err := parseGallons(field(colLossGainAmount))
	if err != nil {
		return tx, fmt.Sprintf("non-numeric loss/gain amount %q", field(colLossGainAmount))
	}
	tx.LossGainAmount = lossGain

	if opType == OpUnknown {
		// Unrecognized op types survive only as generic transfers.
		if tx.FromBatch == "" || tx.ToBatch == "" {
			return tx, fmt.Sprintf("unrecognized op type %q without both batches", rawType)
		}
		if tx.OpID == "" || tx.OpDate.IsZero() {
			return tx, fmt.Sprintf("unrecognized op type %q missing op id or date", rawType)
		}
		return tx, ""
	}

	if err := txValidate.Struct(tx); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return tx, fmt.Sprintf("missing required field %s for %s", verrs[0].Field(), opType)
		}
		return tx, fmt.Sprintf("invalid row: %v", err)
	}

	return tx, ""
}

// parseDate tries the accepted date layouts in order.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseGallons coerces a numeric field. Empty means zero; thousands
// separators are tolerated.
func parseGallons(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// formatGallons renders a volume without trailing zero noise, keeping
// repeated exports byte-identical.
func formatGallons(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
