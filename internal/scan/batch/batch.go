package batch

import (
	"sync"
	"time"

	"ms-scanning/internal/models"
)

// RejectDuplicate is the reason returned when a ticket is already queued.
const RejectDuplicate = "duplicate_in_queue"

// ApprovalError reports one entry that failed re-validation during a bulk
// approve.
type ApprovalError struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// Outcome summarises a bulk approve: how many entries committed and which
// failed, never silently dropping the failures.
type Outcome struct {
	Processed int             `json:"processed"`
	Errors    []ApprovalError `json:"errors,omitempty"`
}

// Collector accumulates provisionally-valid scans for one supervised bulk
// commit. Entries are keyed by ticket identity, not scan identity, so the
// same ticket can never be queued twice.
type Collector struct {
	mu       sync.Mutex
	enabled  bool
	entries  []models.BatchEntry
	byTicket map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{byTicket: make(map[string]struct{})}
}

// Enable turns batch mode on.
func (c *Collector) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable turns batch mode off and discards any pending entries. Nothing
// queued was committed, so there is nothing to undo.
func (c *Collector) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	c.clearLocked()
}

// Enabled reports whether scans are currently routed into the batch.
func (c *Collector) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Add queues a provisionally-valid result. It refuses a ticket that is
// already queued.
func (c *Collector) Add(result models.ScanResult, now time.Time) (bool, string) {
	if result.Ticket == nil {
		return false, "no ticket bound to result"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.byTicket[result.Ticket.ID]; dup {
		return false, RejectDuplicate
	}

	c.byTicket[result.Ticket.ID] = struct{}{}
	c.entries = append(c.entries, models.BatchEntry{
		TicketID:   result.Ticket.ID,
		HolderName: result.Ticket.HolderName,
		TierName:   result.Ticket.TierName,
		Result:     result,
		AddedAt:    now,
	})
	return true, ""
}

// Remove drops a single queued entry by ticket ID.
func (c *Collector) Remove(ticketID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byTicket[ticketID]; !ok {
		return false
	}
	delete(c.byTicket, ticketID)
	for i, entry := range c.entries {
		if entry.TicketID == ticketID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	return true
}

// Clear discards all pending entries.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Entries returns a copy of the pending queue in arrival order.
func (c *Collector) Entries() []models.BatchEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.BatchEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of pending entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Drain removes and returns all pending entries for approval. The caller
// commits them one by one; anything failing re-validation is reported in
// the Outcome, not re-queued.
func (c *Collector) Drain() []models.BatchEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.entries
	c.entries = nil
	c.byTicket = make(map[string]struct{})
	return out
}

func (c *Collector) clearLocked() {
	c.entries = nil
	c.byTicket = make(map[string]struct{})
}
