package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket lifecycle status values. The backend owns the lifecycle; the scan
// engine only ever moves a ticket from issued to scanned.
const (
	TicketStatusIssued   = "issued"
	TicketStatusScanned  = "scanned"
	TicketStatusRefunded = "refunded"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID              string     `bun:"id,pk" json:"id"`
	QRToken         string     `bun:"qr_token,unique" json:"qr_token"`
	EventID         string     `bun:"event_id" json:"event_id"`
	TierID          string     `bun:"tier_id" json:"tier_id"`
	TierName        string     `bun:"tier_name" json:"tier_name"`
	HolderName      string     `bun:"holder_name" json:"holder_name"`
	Status          string     `bun:"status" json:"status"`
	IsUsed          bool       `bun:"is_used" json:"is_used"`
	ScannedAt       *time.Time `bun:"scanned_at,nullzero" json:"scanned_at,omitempty"`
	ExitedAt        *time.Time `bun:"exited_at,nullzero" json:"exited_at,omitempty"`
	Transferred     bool       `bun:"transferred" json:"transferred"`
	TransferredFrom string     `bun:"transferred_from,nullzero" json:"transferred_from,omitempty"`
	RequiresIDCheck bool       `bun:"requires_id_check" json:"requires_id_check"`
	IDCheckedAt     *time.Time `bun:"id_checked_at,nullzero" json:"id_checked_at,omitempty"`
}

// Inside reports whether the holder is currently inside the venue: the
// ticket has been scanned in and not scanned out since. Only meaningful
// when the event runs in exit-tracking mode.
func (t *Ticket) Inside() bool {
	if t.ScannedAt == nil {
		return false
	}
	if t.ExitedAt == nil {
		return true
	}
	return t.ExitedAt.Before(*t.ScannedAt)
}
