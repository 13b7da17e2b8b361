package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Sync status of a locally captured offline scan.
const (
	QueuedPending = "pending"
	QueuedSyncing = "syncing"
	QueuedSynced  = "synced"
	QueuedFailed  = "failed"
)

// QueuedScan is a scan captured while the gate was offline, persisted to
// the device-local store until it syncs or permanently fails.
type QueuedScan struct {
	bun.BaseModel `bun:"table:queued_scans"`

	ID         string    `bun:"id,pk" json:"id"`
	RawPayload string    `bun:"raw_payload,notnull" json:"raw_payload"`
	Method     string    `bun:"method" json:"method"`
	StaffID    string    `bun:"staff_id" json:"staff_id"`
	DeviceID   string    `bun:"device_id,nullzero" json:"device_id,omitempty"`
	CapturedAt time.Time `bun:"captured_at,notnull" json:"captured_at"`
	Status     string    `bun:"status,notnull" json:"status"`
	Retries    int       `bun:"retries" json:"retries"`
	LastError  string    `bun:"last_error,nullzero" json:"last_error,omitempty"`
}
