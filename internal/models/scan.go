package models

import "time"

// ScanMethod identifies how a credential reached the engine.
type ScanMethod string

const (
	MethodQR     ScanMethod = "qr"
	MethodNFC    ScanMethod = "nfc"
	MethodManual ScanMethod = "manual"
)

// ReentryMode is the venue policy for presenting an already-scanned ticket.
type ReentryMode string

const (
	ReentrySingle       ReentryMode = "single"
	ReentryAllowed      ReentryMode = "reentry"
	ReentryExitTracking ReentryMode = "exit_tracking"
)

// ScanStatus is the outcome tag of a ScanResult.
type ScanStatus string

const (
	ScanValid   ScanStatus = "valid"
	ScanUsed    ScanStatus = "used"
	ScanInvalid ScanStatus = "invalid"
	ScanQueued  ScanStatus = "queued"
)

// Block reasons reported on a rejected scan.
const (
	BlockRefunded    = "refunded"
	BlockUsed        = "used"
	BlockTransferred = "transferred"
	BlockAtCapacity  = "at_capacity"
	BlockNotFound    = "not_found"
)

// Override categories. Each maps to exactly one blocking rule.
const (
	OverrideRefund    = "refund"
	OverrideDuplicate = "duplicate"
	OverrideTransfer  = "transfer"
	OverrideCapacity  = "capacity"
)

// ScanDirection distinguishes entry from exit when the event tracks exits.
type ScanDirection string

const (
	DirectionEntry ScanDirection = "entry"
	DirectionExit  ScanDirection = "exit"
)

// ScanAttempt is the ephemeral record of one presented credential. It is
// created per input and discarded once a ScanResult is produced.
type ScanAttempt struct {
	RawPayload string     `json:"raw_payload"`
	Method     ScanMethod `json:"method"`
	StaffID    string     `json:"staff_id"`
	DeviceID   string     `json:"device_id"`
	At         time.Time  `json:"at"`
}

// TransferInfo describes an ownership transfer attached to a blocked or
// overridden scan.
type TransferInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RefundInfo carries the refund context for a refunded-ticket block.
type RefundInfo struct {
	Status string `json:"status"`
}

// ScanResult is the immutable outcome of processing one ScanAttempt.
type ScanResult struct {
	Status           ScanStatus    `json:"status"`
	Ticket           *Ticket       `json:"ticket,omitempty"`
	Message          string        `json:"message"`
	BlockReason      string        `json:"block_reason,omitempty"`
	OverrideUsed     bool          `json:"override_used"`
	OverrideCategory string        `json:"override_category,omitempty"`
	OverrideReason   string        `json:"override_reason,omitempty"`
	OverrideNotes    string        `json:"override_notes,omitempty"`
	RequiresIDCheck  bool          `json:"requires_id_check"`
	Direction        ScanDirection `json:"direction,omitempty"`
	Transfer         *TransferInfo `json:"transfer,omitempty"`
	Refund           *RefundInfo   `json:"refund,omitempty"`
	ScanLogID        string        `json:"scan_log_id,omitempty"`
}

// CapacityStatus is the derived occupancy of an event (or a tier of it).
type CapacityStatus struct {
	EventID string `json:"event_id"`
	TierID  string `json:"tier_id,omitempty"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// Full reports whether admitting one more guest would exceed capacity.
// A zero Total means unlimited.
func (c CapacityStatus) Full() bool {
	return c.Total > 0 && c.Current >= c.Total
}

// BatchEntry is a provisionally-valid scan held for supervised group
// approval.
type BatchEntry struct {
	TicketID   string     `json:"ticket_id"`
	HolderName string     `json:"holder_name"`
	TierName   string     `json:"tier_name"`
	Result     ScanResult `json:"result"`
	AddedAt    time.Time  `json:"added_at"`
}
