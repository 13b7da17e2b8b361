package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-scanning/internal/config"
	"ms-scanning/internal/logger"
	"ms-scanning/internal/models"
	"ms-scanning/internal/scan/batch"
	"ms-scanning/internal/scan/debounce"
	"ms-scanning/internal/scan/offline"
	"ms-scanning/internal/scan/override"
	"ms-scanning/internal/scan/rules"
	"ms-scanning/internal/scan/verifier"

	"github.com/google/uuid"
)

// Deps bundles the coordinator's collaborators.
type Deps struct {
	Verifier     *verifier.Verifier
	Guard        *debounce.Guard
	Engine       *rules.Engine
	Session      *override.Session
	Queue        *offline.Queue
	Batch        *batch.Collector
	Store        TicketStore
	Capacity     CapacityProvider
	Audit        AuditSink
	Connectivity Connectivity
	Notifier     Notifier
	Logger       *logger.Logger
}

// Coordinator drives each incoming credential through verify, debounce,
// offline branching, rule evaluation and commit. It owns the only commit
// path; capacity and override state are never mutated from anywhere else.
type Coordinator struct {
	cfg      config.ScanConfig
	verifier *verifier.Verifier
	guard    *debounce.Guard
	engine   *rules.Engine
	session  *override.Session
	queue    *offline.Queue
	batch    *batch.Collector
	store    TicketStore
	capacity CapacityProvider
	audit    AuditSink
	conn     Connectivity
	notify   Notifier
	log      *logger.Logger

	// commitMu serializes commits so two concurrent scans cannot both
	// believe remaining capacity was available.
	commitMu sync.Mutex

	pendMu  sync.Mutex
	pending map[string]*pendingOverride
}

type overrideReason struct {
	reason string
	notes  string
}

type pendingOverride struct {
	ticket   *models.Ticket
	resolve  chan overrideReason
	cancelCh chan struct{}
	once     sync.Once
}

func NewCoordinator(cfg config.ScanConfig, deps Deps) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		verifier: deps.Verifier,
		guard:    deps.Guard,
		engine:   deps.Engine,
		session:  deps.Session,
		queue:    deps.Queue,
		batch:    deps.Batch,
		store:    deps.Store,
		capacity: deps.Capacity,
		audit:    deps.Audit,
		conn:     deps.Connectivity,
		notify:   deps.Notifier,
		log:      deps.Logger,
		pending:  make(map[string]*pendingOverride),
	}
}

// ProcessScan runs one credential through the full state machine. A nil
// result with a nil error means the scan was suppressed by the debounce
// guard: duplicates mid-flight are a silent no-op, not an error.
func (c *Coordinator) ProcessScan(ctx context.Context, attempt models.ScanAttempt) (*models.ScanResult, error) {
	if attempt.At.IsZero() {
		attempt.At = time.Now()
	}

	token, _, err := c.verifier.Verify(attempt.RawPayload)
	if err != nil {
		// bad credentials are rejected outright, never queued
		res := &models.ScanResult{
			Status:      models.ScanInvalid,
			Message:     "Credential rejected",
			BlockReason: "credential_invalid",
		}
		c.logScanf("invalid", "", "credential rejected: %v", err)
		c.emit(res)
		return res, nil
	}

	if !c.guard.Admit(token, attempt.At) {
		return nil, nil
	}

	if c.conn != nil && !c.conn.Online() {
		return c.enqueue(ctx, attempt, token)
	}

	ticket, err := c.findByToken(ctx, token)
	switch {
	case errors.Is(err, ErrTicketNotFound):
		res := &models.ScanResult{
			Status:      models.ScanInvalid,
			Message:     "Ticket not found",
			BlockReason: models.BlockNotFound,
		}
		c.recordBlocked(ctx, nil, attempt, models.BlockNotFound)
		return c.finish(token, res), nil
	case err != nil:
		// unreachable backend is not an invalid ticket
		return c.enqueue(ctx, attempt, token)
	}

	eval, err := c.engine.Evaluate(ctx, ticket, attempt.Method, attempt.At)
	if err != nil {
		return c.enqueue(ctx, attempt, token)
	}

	switch eval.Decision {
	case rules.Blocked:
		res := blockedResult(ticket, eval)
		c.recordBlocked(ctx, ticket, attempt, res.BlockReason)
		c.logScanf(string(res.Status), ticket.ID, "blocked: %s", res.BlockReason)
		return c.finish(token, res), nil

	case rules.AllowedWithOverride:
		return c.awaitOverrideReason(ctx, ticket, eval, attempt, token)

	default:
		return c.conclude(ctx, ticket, eval, attempt, token, "", "")
	}
}

// ResolveOverride supplies the operator's reason for a scan suspended in
// AllowedPendingOverrideReason. An empty reason is refused and the scan
// keeps waiting.
func (c *Coordinator) ResolveOverride(ticketID, reason, notes string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	c.pendMu.Lock()
	p, ok := c.pending[ticketID]
	c.pendMu.Unlock()
	if !ok {
		return ErrNoPendingOverride
	}
	select {
	case p.resolve <- overrideReason{reason: reason, notes: notes}:
		return nil
	default:
		return ErrNoPendingOverride
	}
}

// CancelOverride abandons a suspended scan. Ticket state is untouched and
// the debounce key is released as if the scan never happened.
func (c *Coordinator) CancelOverride(ticketID string) error {
	c.pendMu.Lock()
	p, ok := c.pending[ticketID]
	c.pendMu.Unlock()
	if !ok {
		return ErrNoPendingOverride
	}
	p.once.Do(func() { close(p.cancelCh) })
	return nil
}

func (c *Coordinator) awaitOverrideReason(ctx context.Context, ticket *models.Ticket, eval rules.Evaluation, attempt models.ScanAttempt, token string) (*models.ScanResult, error) {
	p := &pendingOverride{
		ticket:   ticket,
		resolve:  make(chan overrideReason, 1),
		cancelCh: make(chan struct{}),
	}

	c.pendMu.Lock()
	if _, exists := c.pending[ticket.ID]; exists {
		c.pendMu.Unlock()
		c.guard.Release(token)
		return nil, ErrOverrideAbandoned
	}
	c.pending[ticket.ID] = p
	c.pendMu.Unlock()
	defer func() {
		c.pendMu.Lock()
		delete(c.pending, ticket.ID)
		c.pendMu.Unlock()
	}()

	var categories []string
	for _, b := range eval.Blocks {
		if b.Overridden {
			categories = append(categories, b.Category)
		}
	}
	if c.notify != nil {
		c.notify.OverridePending(*ticket, categories)
	}
	c.logOverridef(ticket.ID, categories, "waiting for operator reason")

	timer := time.NewTimer(c.cfg.OverrideWait)
	defer timer.Stop()

	select {
	case r := <-p.resolve:
		return c.conclude(ctx, ticket, eval, attempt, token, r.reason, r.notes)
	case <-p.cancelCh:
		c.guard.Release(token)
		return nil, ErrOverrideAbandoned
	case <-timer.C:
		c.guard.Release(token)
		return nil, ErrOverrideAbandoned
	case <-ctx.Done():
		c.guard.Release(token)
		return nil, ctx.Err()
	}
}

// conclude routes an allowed scan either into the batch queue or straight
// into commit.
func (c *Coordinator) conclude(ctx context.Context, ticket *models.Ticket, eval rules.Evaluation, attempt models.ScanAttempt, token, reason, notes string) (*models.ScanResult, error) {
	if c.batch != nil && c.batch.Enabled() && eval.Direction != models.DirectionExit {
		res := provisionalResult(ticket, eval, reason, notes)
		if ok, why := c.batch.Add(*res, attempt.At); !ok {
			res = &models.ScanResult{
				Status:      models.ScanUsed,
				Ticket:      ticket,
				Message:     "Already in batch queue",
				BlockReason: why,
			}
		} else {
			c.logBatchf("ADD", "%s queued for group approval", ticket.ID)
		}
		return c.finish(token, res), nil
	}

	res, err := c.commit(ctx, ticket, eval, attempt, reason, notes)
	if err != nil {
		if errors.Is(err, ErrTransientNetwork) && eval.Decision != rules.AllowedWithOverride {
			// backend dropped between check and commit; the queued replay
			// dedups through the rule engine at sync time
			return c.enqueue(ctx, attempt, token)
		}
		c.guard.Release(token)
		return nil, err
	}
	return c.finish(token, res), nil
}

// commit is the single serialized write path: audit rows first, then
// ticket state, then occupancy.
func (c *Coordinator) commit(ctx context.Context, ticket *models.Ticket, eval rules.Evaluation, attempt models.ScanAttempt, reason, notes string) (*models.ScanResult, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout())
	defer cancel()

	overridden := eval.Decision == rules.AllowedWithOverride
	if overridden && strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	// the rule pass read occupancy outside this lock, so a concurrent
	// admission may have taken the last slot since; re-check before any
	// write or the counter can run past the configured total
	if eval.Direction != models.DirectionExit && !eval.Readmission && !capacityOverridden(eval) {
		full, err := c.atCapacity(rctx, ticket)
		if err != nil {
			return nil, fmt.Errorf("recheck capacity: %w", err)
		}
		if full {
			lost := rules.Evaluation{
				Decision: rules.Blocked,
				Blocks:   []rules.BlockReason{{Reason: models.BlockAtCapacity, Category: models.OverrideCapacity}},
				Transfer: eval.Transfer,
				Refund:   eval.Refund,
			}
			res := blockedResult(ticket, lost)
			c.recordBlocked(ctx, ticket, attempt, models.BlockAtCapacity)
			c.logScanf(string(res.Status), ticket.ID, "blocked at commit: %s", models.BlockAtCapacity)
			return res, nil
		}
	}

	status := models.ScanValid
	scanLogID := uuid.New().String()
	logRow := models.ScanLog{
		ID:             scanLogID,
		TicketID:       ticket.ID,
		EventID:        ticket.EventID,
		StaffID:        attempt.StaffID,
		DeviceID:       attempt.DeviceID,
		Method:         string(attempt.Method),
		Result:         string(status),
		Direction:      string(eval.Direction),
		OverrideUsed:   overridden,
		OverrideReason: reason,
		CreatedAt:      attempt.At,
	}

	// the audit trail is written before ticket state so an override can
	// never appear committed in the UI with an empty trail behind it
	if err := c.audit.LogScan(rctx, logRow); err != nil {
		return nil, fmt.Errorf("write scan log: %w", err)
	}

	category := ""
	if overridden {
		if fb := firstOverridden(eval); fb != nil {
			category = fb.Category
		}
		entry := models.OverrideLogEntry{
			ID:        uuid.New().String(),
			TicketID:  ticket.ID,
			StaffID:   attempt.StaffID,
			Category:  category,
			Reason:    reason,
			Notes:     notes,
			ScanLogID: scanLogID,
			CreatedAt: attempt.At,
		}
		if err := c.audit.LogOverride(rctx, entry); err != nil {
			return nil, fmt.Errorf("write override log: %w", err)
		}
		c.logOverridef(ticket.ID, []string{category}, "bypassed with reason: %s", reason)
	}

	var updated *models.Ticket
	var err error
	if eval.Direction == models.DirectionExit {
		updated, err = c.store.MarkExited(rctx, ticket.ID, attempt.At)
	} else {
		updated, err = c.store.MarkScanned(rctx, ticket.ID, attempt.StaffID, attempt.At)
	}
	if err != nil {
		return nil, fmt.Errorf("commit ticket state: %w", err)
	}

	switch {
	case eval.Direction == models.DirectionExit:
		if err := c.capacity.DecrementOccupancy(rctx, ticket.EventID, ticket.TierID); err != nil {
			c.logScanf("warn", ticket.ID, "occupancy decrement failed: %v", err)
		}
	case !eval.Readmission:
		if err := c.capacity.IncrementOccupancy(rctx, ticket.EventID, ticket.TierID); err != nil {
			c.logScanf("warn", ticket.ID, "occupancy increment failed: %v", err)
		}
	}

	res := &models.ScanResult{
		Status:           status,
		Ticket:           updated,
		Message:          commitMessage(eval),
		OverrideUsed:     overridden,
		OverrideCategory: category,
		OverrideReason:   reason,
		OverrideNotes:    notes,
		RequiresIDCheck:  eval.RequiresIDCheck,
		Direction:        eval.Direction,
		Transfer:         eval.Transfer,
		Refund:           eval.Refund,
		ScanLogID:        scanLogID,
	}
	c.logScanf(string(status), ticket.ID, "%s", res.Message)
	return res, nil
}

// ApproveBatch drains the batch queue and commits every entry that is
// still committable, re-validating each against current ticket state
// since time has passed since it was queued. staffID is the approving
// supervisor, recorded on every committed scan log.
func (c *Coordinator) ApproveBatch(ctx context.Context, staffID string) (batch.Outcome, error) {
	entries := c.batch.Drain()
	outcome := batch.Outcome{}

	for _, entry := range entries {
		ticket, err := c.findByID(ctx, entry.TicketID)
		if err != nil {
			outcome.Errors = append(outcome.Errors, batch.ApprovalError{
				TicketID: entry.TicketID,
				Reason:   err.Error(),
			})
			continue
		}

		now := time.Now()
		eval, err := c.engine.Evaluate(ctx, ticket, models.MethodQR, now)
		if err != nil {
			outcome.Errors = append(outcome.Errors, batch.ApprovalError{
				TicketID: entry.TicketID,
				Reason:   err.Error(),
			})
			continue
		}

		// an entry originally approved through an override stays
		// committable as long as the same category is the only block
		if eval.Decision == rules.Blocked {
			fb := eval.FirstBlock()
			if entry.Result.OverrideUsed && fb != nil && fb.Category == entry.Result.OverrideCategory {
				fb.Overridden = true
				eval.Decision = rules.AllowedWithOverride
			} else {
				reason := ""
				if fb != nil {
					reason = fb.Reason
				}
				outcome.Errors = append(outcome.Errors, batch.ApprovalError{
					TicketID: entry.TicketID,
					Reason:   reason,
				})
				continue
			}
		}

		attempt := models.ScanAttempt{
			Method:  models.MethodQR,
			StaffID: staffID,
			At:      now,
		}

		res, err := c.commit(ctx, ticket, eval, attempt, entry.Result.OverrideReason, entry.Result.OverrideNotes)
		if err != nil {
			outcome.Errors = append(outcome.Errors, batch.ApprovalError{
				TicketID: entry.TicketID,
				Reason:   err.Error(),
			})
			continue
		}
		// the commit-time capacity re-check can still refuse the entry
		if res.BlockReason != "" {
			c.emit(res)
			outcome.Errors = append(outcome.Errors, batch.ApprovalError{
				TicketID: entry.TicketID,
				Reason:   res.BlockReason,
			})
			continue
		}
		c.emit(res)
		outcome.Processed++
	}

	c.logBatchf("APPROVE", "%d committed, %d failed", outcome.Processed, len(outcome.Errors))
	return outcome, nil
}

// SyncProcessor replays one queued offline scan through the online rule
// path. Rules run against current backend state, so a ticket refunded (or
// scanned elsewhere) between capture and sync resolves as blocked now.
func (c *Coordinator) SyncProcessor() offline.Processor {
	return func(ctx context.Context, entry models.QueuedScan) error {
		token, _, err := c.verifier.Verify(entry.RawPayload)
		if err != nil {
			return fmt.Errorf("queued credential: %w", err)
		}

		ticket, err := c.findByToken(ctx, token)
		switch {
		case errors.Is(err, ErrTicketNotFound):
			c.emit(&models.ScanResult{
				Status:      models.ScanInvalid,
				Message:     "Queued scan: ticket not found",
				BlockReason: models.BlockNotFound,
			})
			return nil
		case err != nil:
			return fmt.Errorf("%w: %v", offline.ErrRetry, err)
		}

		now := time.Now()
		attempt := models.ScanAttempt{
			RawPayload: entry.RawPayload,
			Method:     models.ScanMethod(entry.Method),
			StaffID:    entry.StaffID,
			DeviceID:   entry.DeviceID,
			At:         now,
		}

		eval, err := c.engine.Evaluate(ctx, ticket, attempt.Method, now)
		if err != nil {
			return fmt.Errorf("%w: %v", offline.ErrRetry, err)
		}

		// no operator is attached to a background sync, so an override
		// cannot be reasoned about; treat it as the block it bypasses
		if eval.Decision != rules.Allowed {
			res := blockedResult(ticket, eval)
			res.Message = "Queued scan: " + res.Message
			c.recordBlocked(ctx, ticket, attempt, res.BlockReason)
			c.emit(res)
			return nil
		}

		res, err := c.commit(ctx, ticket, eval, attempt, "", "")
		if err != nil {
			if errors.Is(err, ErrTransientNetwork) {
				return fmt.Errorf("%w: %v", offline.ErrRetry, err)
			}
			return err
		}
		c.emit(res)
		return nil
	}
}

// RunSync triggers one immediate drain of the offline queue.
func (c *Coordinator) RunSync(ctx context.Context) (offline.SyncSummary, error) {
	summary, err := c.queue.Sync(ctx, c.SyncProcessor())
	if err != nil {
		return summary, err
	}
	if summary.Total > 0 && c.notify != nil {
		c.notify.SyncCompleted(summary)
	}
	return summary, nil
}

// GetSyncStatus reports connectivity plus queue depth.
func (c *Coordinator) GetSyncStatus(ctx context.Context) (SyncStatus, error) {
	pending, failed, err := c.queue.Counts(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	online := c.conn == nil || c.conn.Online()
	return SyncStatus{Online: online, Pending: pending, Failed: failed}, nil
}

// FailedScans lists queued entries that exhausted their retry budget.
func (c *Coordinator) FailedScans(ctx context.Context) ([]models.QueuedScan, error) {
	return c.queue.Failed(ctx)
}

// ConfirmIDCheck records that gate staff verified the holder's identity
// after a scan flagged RequiresIDCheck.
func (c *Coordinator) ConfirmIDCheck(ctx context.Context, ticketID string) error {
	if _, err := c.findByID(ctx, ticketID); err != nil {
		return err
	}
	if err := c.store.MarkIDChecked(ctx, ticketID, time.Now()); err != nil {
		return err
	}
	c.logScanf("id_check", ticketID, "identity verified at gate")
	return nil
}

// GetCapacityStatus returns event-level occupancy.
func (c *Coordinator) GetCapacityStatus(ctx context.Context, eventID string) (models.CapacityStatus, error) {
	return c.capacity.GetCapacity(ctx, eventID, "")
}

// ActivateOverride starts the process-wide bypass session.
func (c *Coordinator) ActivateOverride(staffID string, categories []string) override.Event {
	return c.session.Activate(staffID, categories, time.Now())
}

// DeactivateOverride ends the bypass session.
func (c *Coordinator) DeactivateOverride() {
	c.session.Deactivate()
}

// OverrideStatus reports the current session state.
func (c *Coordinator) OverrideStatus() override.Event {
	return c.session.Snapshot(time.Now())
}

// Batch mode controls.
func (c *Coordinator) EnableBatch()  { c.batch.Enable() }
func (c *Coordinator) DisableBatch() { c.batch.Disable() }
func (c *Coordinator) BatchEntries() []models.BatchEntry {
	return c.batch.Entries()
}
func (c *Coordinator) RemoveBatchEntry(ticketID string) bool {
	return c.batch.Remove(ticketID)
}

// ReentryMode controls.
func (c *Coordinator) ReentryMode() models.ReentryMode { return c.engine.ReentryMode() }
func (c *Coordinator) SetReentryMode(mode models.ReentryMode) {
	c.engine.SetReentryMode(mode)
}

// --- internals ---

func (c *Coordinator) enqueue(ctx context.Context, attempt models.ScanAttempt, token string) (*models.ScanResult, error) {
	if _, err := c.queue.Enqueue(ctx, attempt); err != nil {
		// local disk failure; nothing else we can do with this scan
		c.guard.Release(token)
		return nil, err
	}
	c.logSyncf("QUEUE", "scan stored offline for later sync")
	res := &models.ScanResult{
		Status:  models.ScanQueued,
		Message: "Offline - scan saved and will sync automatically",
	}
	return c.finish(token, res), nil
}

func (c *Coordinator) finish(token string, res *models.ScanResult) *models.ScanResult {
	c.guard.ReleaseAfter(token, c.cfg.ReleaseCooldown)
	c.emit(res)
	return res
}

func (c *Coordinator) emit(res *models.ScanResult) {
	if c.notify != nil && res != nil {
		c.notify.ScanProcessed(*res)
	}
}

func (c *Coordinator) recordBlocked(ctx context.Context, ticket *models.Ticket, attempt models.ScanAttempt, reason string) {
	row := models.ScanLog{
		ID:        uuid.New().String(),
		StaffID:   attempt.StaffID,
		DeviceID:  attempt.DeviceID,
		Method:    string(attempt.Method),
		Result:    reason,
		CreatedAt: attempt.At,
	}
	if ticket != nil {
		row.TicketID = ticket.ID
		row.EventID = ticket.EventID
	}
	rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout())
	defer cancel()
	if err := c.audit.LogScan(rctx, row); err != nil {
		c.logScanf("warn", row.TicketID, "blocked-scan log write failed: %v", err)
	}
}

func (c *Coordinator) findByToken(ctx context.Context, token string) (*models.Ticket, error) {
	rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout())
	defer cancel()
	return c.store.FindByToken(rctx, token)
}

func (c *Coordinator) findByID(ctx context.Context, id string) (*models.Ticket, error) {
	rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout())
	defer cancel()
	return c.store.FindByID(rctx, id)
}

func (c *Coordinator) remoteTimeout() time.Duration {
	if c.cfg.RemoteTimeout <= 0 {
		return 3 * time.Second
	}
	return c.cfg.RemoteTimeout
}

func (c *Coordinator) logScanf(result, ticketID, format string, args ...interface{}) {
	if c.log != nil {
		c.log.LogScan(ticketID, result, fmt.Sprintf(format, args...))
	}
}

func (c *Coordinator) logSyncf(action, format string, args ...interface{}) {
	if c.log != nil {
		c.log.LogSync(action, fmt.Sprintf(format, args...))
	}
}

func (c *Coordinator) logBatchf(action, format string, args ...interface{}) {
	if c.log != nil {
		c.log.LogBatch(action, fmt.Sprintf(format, args...))
	}
}

func (c *Coordinator) logOverridef(ticketID string, categories []string, format string, args ...interface{}) {
	if c.log != nil {
		c.log.LogOverride(ticketID, strings.Join(categories, ","), fmt.Sprintf(format, args...))
	}
}

// atCapacity reads current occupancy for the ticket's event and tier.
// Called under commitMu so the read and the subsequent increment are one
// atomic admission.
func (c *Coordinator) atCapacity(ctx context.Context, ticket *models.Ticket) (bool, error) {
	status, err := c.capacity.GetCapacity(ctx, ticket.EventID, "")
	if err != nil {
		return false, err
	}
	if status.Full() {
		return true, nil
	}
	if ticket.TierID == "" {
		return false, nil
	}
	tier, err := c.capacity.GetCapacity(ctx, ticket.EventID, ticket.TierID)
	if err != nil {
		return false, err
	}
	return tier.Full(), nil
}

func capacityOverridden(eval rules.Evaluation) bool {
	for _, b := range eval.Blocks {
		if b.Category == models.OverrideCapacity && b.Overridden {
			return true
		}
	}
	return false
}

func blockedResult(ticket *models.Ticket, eval rules.Evaluation) *models.ScanResult {
	fb := eval.FirstBlock()
	reason := ""
	if fb != nil {
		reason = fb.Reason
	}
	status := models.ScanInvalid
	if reason == models.BlockUsed {
		status = models.ScanUsed
	}
	return &models.ScanResult{
		Status:      status,
		Ticket:      ticket,
		Message:     blockMessage(reason),
		BlockReason: reason,
		Transfer:    eval.Transfer,
		Refund:      eval.Refund,
	}
}

func provisionalResult(ticket *models.Ticket, eval rules.Evaluation, reason, notes string) *models.ScanResult {
	overridden := eval.Decision == rules.AllowedWithOverride
	category := ""
	if fb := firstOverridden(eval); fb != nil {
		category = fb.Category
	}
	return &models.ScanResult{
		Status:           models.ScanValid,
		Ticket:           ticket,
		Message:          "Held for group approval",
		OverrideUsed:     overridden,
		OverrideCategory: category,
		OverrideReason:   reason,
		OverrideNotes:    notes,
		RequiresIDCheck:  eval.RequiresIDCheck,
		Direction:        eval.Direction,
	}
}

func firstOverridden(eval rules.Evaluation) *rules.BlockReason {
	for i := range eval.Blocks {
		if eval.Blocks[i].Overridden {
			return &eval.Blocks[i]
		}
	}
	return nil
}

func blockMessage(reason string) string {
	switch reason {
	case models.BlockRefunded:
		return "Ticket was refunded"
	case models.BlockUsed:
		return "Ticket already scanned"
	case models.BlockTransferred:
		return "Ticket ownership was transferred"
	case models.BlockAtCapacity:
		return "Venue or tier is at capacity"
	case models.BlockNotFound:
		return "Ticket not found"
	default:
		return "Entry denied"
	}
}

func commitMessage(eval rules.Evaluation) string {
	switch {
	case eval.Direction == models.DirectionExit:
		return "Exit recorded"
	case eval.Readmission:
		return "Re-entry approved"
	case eval.Decision == rules.AllowedWithOverride:
		return "Entry approved with override"
	default:
		return "Entry approved"
	}
}
