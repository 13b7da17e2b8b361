package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-scanning/internal/models"
)

// Decision is the outcome of a rule evaluation.
type Decision int

const (
	Allowed Decision = iota
	AllowedWithOverride
	Blocked
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case AllowedWithOverride:
		return "allowed_with_override"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// BlockReason records one rule that fired, and whether an active override
// bypassed it.
type BlockReason struct {
	Reason     string
	Category   string
	Overridden bool
}

// CapacityProvider supplies current occupancy. Read-only from the engine's
// point of view; commits mutate occupancy elsewhere.
type CapacityProvider interface {
	GetCapacity(ctx context.Context, eventID, tierID string) (models.CapacityStatus, error)
}

// OverrideChecker reports whether an active override session covers a rule
// category at the given instant.
type OverrideChecker interface {
	Covers(category string, now time.Time) bool
}

// Evaluation is the full result of running the rule chain over a ticket.
type Evaluation struct {
	Decision        Decision
	Blocks          []BlockReason
	RequiresIDCheck bool
	Direction       models.ScanDirection
	Readmission     bool
	Transfer        *models.TransferInfo
	Refund          *models.RefundInfo
}

// FirstBlock returns the first rule that fired, nil when none did.
func (ev Evaluation) FirstBlock() *BlockReason {
	if len(ev.Blocks) == 0 {
		return nil
	}
	return &ev.Blocks[0]
}

// Engine runs the layered policy checks in fixed order: refund, duplicate
// use, transfer, capacity, then the ID-verification side signal. Each rule
// short-circuits on first block unless the override session covers its
// category; the engine never commits anything itself.
type Engine struct {
	capacity CapacityProvider
	override OverrideChecker

	mu   sync.RWMutex
	mode models.ReentryMode
}

func NewEngine(capacity CapacityProvider, override OverrideChecker, mode models.ReentryMode) *Engine {
	if mode == "" {
		mode = models.ReentrySingle
	}
	return &Engine{capacity: capacity, override: override, mode: mode}
}

// ReentryMode returns the active venue re-entry policy.
func (e *Engine) ReentryMode() models.ReentryMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// SetReentryMode switches the venue policy at runtime.
func (e *Engine) SetReentryMode(mode models.ReentryMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Evaluate runs the rule chain. A returned error means the backend could
// not be consulted, not that the ticket is bad; callers route that to the
// offline path.
func (e *Engine) Evaluate(ctx context.Context, t *models.Ticket, method models.ScanMethod, now time.Time) (Evaluation, error) {
	ev := Evaluation{Decision: Allowed, Direction: models.DirectionEntry}
	mode := e.ReentryMode()

	// block records a fired rule; returns true when evaluation must stop.
	block := func(reason, category string) bool {
		if e.override != nil && e.override.Covers(category, now) {
			ev.Blocks = append(ev.Blocks, BlockReason{Reason: reason, Category: category, Overridden: true})
			ev.Decision = AllowedWithOverride
			return false
		}
		ev.Blocks = append(ev.Blocks, BlockReason{Reason: reason, Category: category})
		ev.Decision = Blocked
		return true
	}

	// 1. refund
	if t.Status == models.TicketStatusRefunded {
		ev.Refund = &models.RefundInfo{Status: t.Status}
		if block(models.BlockRefunded, models.OverrideRefund) {
			return ev, nil
		}
	}

	// 2. duplicate use, interpreted through the venue re-entry policy
	used := t.IsUsed || t.Status == models.TicketStatusScanned
	if used {
		switch mode {
		case models.ReentrySingle:
			if block(models.BlockUsed, models.OverrideDuplicate) {
				return ev, nil
			}
		case models.ReentryAllowed:
			ev.Readmission = true
		case models.ReentryExitTracking:
			if t.Inside() {
				ev.Direction = models.DirectionExit
			}
		}
	}

	// 3. ownership transfer / name mismatch
	if t.Transferred {
		ev.Transfer = &models.TransferInfo{From: t.TransferredFrom, To: t.HolderName}
		if block(models.BlockTransferred, models.OverrideTransfer) {
			return ev, nil
		}
	}

	// 4. capacity, entry only; exits and readmissions never add occupancy
	if ev.Direction == models.DirectionEntry && !ev.Readmission {
		full, err := e.atCapacity(ctx, t)
		if err != nil {
			return ev, fmt.Errorf("capacity check for event %s: %w", t.EventID, err)
		}
		if full {
			if block(models.BlockAtCapacity, models.OverrideCapacity) {
				return ev, nil
			}
		}
	}

	// 5. ID verification is a post-entry obligation, never a block
	if t.RequiresIDCheck && t.IDCheckedAt == nil {
		ev.RequiresIDCheck = true
	}

	return ev, nil
}

func (e *Engine) atCapacity(ctx context.Context, t *models.Ticket) (bool, error) {
	status, err := e.capacity.GetCapacity(ctx, t.EventID, "")
	if err != nil {
		return false, err
	}
	if status.Full() {
		return true, nil
	}
	if t.TierID == "" {
		return false, nil
	}
	tier, err := e.capacity.GetCapacity(ctx, t.EventID, t.TierID)
	if err != nil {
		return false, err
	}
	return tier.Full(), nil
}
