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
	"strings"
	"time"
)

// OpType classifies a ledger operation.
type OpType string

const (
	// OpTransfer moves volume from one vessel-batch to another.
	OpTransfer OpType = "Transfer"

	// OpBlend combines volume from a source batch into a destination blend.
	OpBlend OpType = "Blend"

	// OpReceipt records new volume entering the system (fruit intake,
	// purchased bulk wine). Receipts have no source batch.
	OpReceipt OpType = "Receipt"

	// OpAdjustment corrects a batch's volume. A paired adjustment moves
	// volume like a transfer; a single-sided adjustment applies directly
	// to the destination batch.
	OpAdjustment OpType = "Adjustment"

	// OpOnHand is an inventory snapshot that overrides a batch's running
	// volume with a counted value.
	OpOnHand OpType = "On-Hand"

	// OpUnknown marks an unrecognized operation type. Unknown rows are
	// kept only when both batch fields are present and are then treated
	// as generic transfers.
	OpUnknown OpType = "Unknown"
)

// ParseOpType maps a raw operation type string to an OpType.
//
// Matching is case-insensitive and tolerant of separator variants
// ("On-Hand", "on hand", "ONHAND" all map to OpOnHand). Unrecognized
// values map to OpUnknown.
func ParseOpType(raw string) OpType {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")

	switch normalized {
	case "transfer":
		return OpTransfer
	case "blend":
		return OpBlend
	case "receipt":
		return OpReceipt
	case "adjustment":
		return OpAdjustment
	case "onhand":
		return OpOnHand
	default:
		return OpUnknown
	}
}

// MovesVolume reports whether the op type contributes lineage edges
// (Transfer, Blend, Adjustment, or a kept Unknown row).
func (t OpType) MovesVolume() bool {
	switch t {
	case OpTransfer, OpBlend, OpAdjustment, OpUnknown:
		return true
	default:
		return false
	}
}

// Transaction is one normalized ledger operation. Transactions are loaded
// once and never mutated afterwards.
type Transaction struct {
	OpDate         time.Time `json:"op_date"`
	OpID           string    `json:"op_id"`
	OpType         OpType    `json:"op_type"`
	FromVessel     string    `json:"from_vessel,omitempty"`
	FromBatch      string    `json:"from_batch,omitempty"`
	ToVessel       string    `json:"to_vessel,omitempty"`
	ToBatch        string    `json:"to_batch"`
	Net            float64   `json:"net_gallons"`
	LossGainAmount float64   `json:"loss_gain_amount,omitempty"`
	LossGainReason string    `json:"loss_gain_reason,omitempty"`
	Winery         string    `json:"winery,omitempty"`
}

// DateLayout is the canonical on-disk date format for op dates.
const DateLayout = "2006-01-02"

// Canonical CSV column headers, in dump order.
const (
	ColOpDate         = "Op Date"
	ColOpID           = "Op Id"
	ColOpType         = "Op Type"
	ColFromVessel     = "From Vessel"
	ColFromBatch      = "From Batch"
	ColToVessel       = "To Vessel"
	ColToBatch        = "To Batch"
	ColNet            = "NET"
	ColLossGainAmount = "Loss/Gain Amount (gal)"
	ColLossGainReason = "Loss/Gain Reason"
	ColWinery         = "Winery"
)

// Headers returns the canonical CSV header row for transaction dumps.
func Headers() []string {
	return []string{
		ColOpDate, ColOpID, ColOpType,
		ColFromVessel, ColFromBatch, ColToVessel, ColToBatch,
		ColNet, ColLossGainAmount, ColLossGainReason, ColWinery,
	}
}

// Record returns the transaction as a CSV record matching Headers().
func (t Transaction) Record() []string {
	return []string{
		t.OpDate.Format(DateLayout),
		t.OpID,
		string(t.OpType),
		t.FromVessel,
		t.FromBatch,
		t.ToVessel,
		t.ToBatch,
		formatGallons(t.Net),
		formatGallons(t.LossGainAmount),
		t.LossGainReason,
		t.Winery,
	}
}
