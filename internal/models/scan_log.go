package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScanLog is the audit row written for every committed scan decision.
type ScanLog struct {
	bun.BaseModel `bun:"table:scan_logs"`

	ID             string    `bun:"id,pk" json:"id"`
	TicketID       string    `bun:"ticket_id" json:"ticket_id"`
	EventID        string    `bun:"event_id" json:"event_id"`
	StaffID        string    `bun:"staff_id" json:"staff_id"`
	DeviceID       string    `bun:"device_id,nullzero" json:"device_id,omitempty"`
	Method         string    `bun:"method" json:"method"`
	Result         string    `bun:"result" json:"result"`
	Direction      string    `bun:"direction,nullzero" json:"direction,omitempty"`
	OverrideUsed   bool      `bun:"override_used" json:"override_used"`
	OverrideReason string    `bun:"override_reason,nullzero" json:"override_reason,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// OverrideLogEntry records one rule bypass. Every overridden commit must
// produce exactly one of these, referencing the scan log it rode on.
type OverrideLogEntry struct {
	bun.BaseModel `bun:"table:override_logs"`

	ID        string    `bun:"id,pk" json:"id"`
	TicketID  string    `bun:"ticket_id" json:"ticket_id"`
	StaffID   string    `bun:"staff_id" json:"staff_id"`
	Category  string    `bun:"category" json:"category"`
	Reason    string    `bun:"reason,notnull" json:"reason"`
	Notes     string    `bun:"notes,nullzero" json:"notes,omitempty"`
	ScanLogID string    `bun:"scan_log_id" json:"scan_log_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
