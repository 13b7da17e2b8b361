package scan

import (
	"context"
	"errors"
	"time"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan/offline"
)

// Sentinel errors crossing the engine boundary.
var (
	// ErrTicketNotFound means the credential resolved to no ticket,
	// distinct from "found but blocked".
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTransientNetwork marks a backend call that failed for
	// reachability reasons. It is never surfaced as a denial; callers
	// route the scan to the offline queue instead.
	ErrTransientNetwork = errors.New("backend unreachable")

	// ErrOverrideAbandoned is returned when the operator cancelled or
	// timed out the override-reason prompt. The scan leaves no trace.
	ErrOverrideAbandoned = errors.New("override abandoned")

	// ErrNoPendingOverride means there is no scan waiting on a reason for
	// that ticket.
	ErrNoPendingOverride = errors.New("no pending override for ticket")

	// ErrReasonRequired rejects an override resolution with an empty
	// reason. A half-completed override must never commit.
	ErrReasonRequired = errors.New("override reason required")
)

// TicketStore is the backend owning ticket state. Implementations must
// return ErrTicketNotFound for unknown credentials and wrap reachability
// failures in ErrTransientNetwork.
type TicketStore interface {
	FindByToken(ctx context.Context, token string) (*models.Ticket, error)
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	MarkScanned(ctx context.Context, id, staffID string, now time.Time) (*models.Ticket, error)
	MarkExited(ctx context.Context, id string, now time.Time) (*models.Ticket, error)
	MarkIDChecked(ctx context.Context, id string, now time.Time) error
}

// CapacityProvider reads and maintains per-event (and per-tier) occupancy.
type CapacityProvider interface {
	GetCapacity(ctx context.Context, eventID, tierID string) (models.CapacityStatus, error)
	IncrementOccupancy(ctx context.Context, eventID, tierID string) error
	DecrementOccupancy(ctx context.Context, eventID, tierID string) error
}

// AuditSink persists scan and override log rows. The rows are the audit
// record; implementations must not drop them silently.
type AuditSink interface {
	LogScan(ctx context.Context, entry models.ScanLog) error
	LogOverride(ctx context.Context, entry models.OverrideLogEntry) error
}

// Connectivity reports whether the backend is currently reachable.
type Connectivity interface {
	Online() bool
}

// Notifier pushes engine events to the operator UI layer. All methods are
// fire-and-forget. Override session changes are not part of this
// interface: the session announces those itself through the callback it
// was constructed with.
type Notifier interface {
	ScanProcessed(result models.ScanResult)
	OverridePending(ticket models.Ticket, categories []string)
	SyncCompleted(summary offline.SyncSummary)
}

// SyncStatus is the operator-facing view of the offline queue.
type SyncStatus struct {
	Online  bool `json:"online"`
	Pending int  `json:"pending"`
	Failed  int  `json:"failed"`
}
