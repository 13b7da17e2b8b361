package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-scanning/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ErrRetry wraps failures that should leave the entry pending for the next
// sync pass, typically because the backend is still unreachable.
var ErrRetry = errors.New("sync retry")

// SyncSummary reports one drain of the queue. Partial results are normal:
// some entries succeed while others fail or stay pending.
type SyncSummary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Processor replays one queued scan through the online commit path. A nil
// return means the entry is done (including scans that resolved as
// blocked, which is an expected outcome, not an error). Wrapping ErrRetry
// keeps the entry pending; any other error marks it failed.
type Processor func(ctx context.Context, entry models.QueuedScan) error

// Queue is the durable device-local append log of scans captured while
// offline. Enqueue never fails for backend reasons: the store is a local
// SQLite file.
type Queue struct {
	db         *bun.DB
	maxRetries int
}

// Open creates (or reopens) the queue at the given SQLite path.
func Open(path string, maxRetries int) (*Queue, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	q := &Queue{db: bun.NewDB(sqldb, sqlitedialect.New()), maxRetries: maxRetries}
	if err := q.init(context.Background()); err != nil {
		return nil, fmt.Errorf("init offline queue: %w", err)
	}
	return q, nil
}

func (q *Queue) init(ctx context.Context) error {
	_, err := q.db.NewCreateTable().
		Model((*models.QueuedScan)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue appends a scan attempt to the local log. It only fails when the
// local disk does, never for backend reachability.
func (q *Queue) Enqueue(ctx context.Context, attempt models.ScanAttempt) (*models.QueuedScan, error) {
	entry := &models.QueuedScan{
		ID:         uuid.New().String(),
		RawPayload: attempt.RawPayload,
		Method:     string(attempt.Method),
		StaffID:    attempt.StaffID,
		DeviceID:   attempt.DeviceID,
		CapturedAt: attempt.At,
		Status:     models.QueuedPending,
	}
	if _, err := q.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue scan: %w", err)
	}
	return entry, nil
}

// Pending returns unsynced entries in strict FIFO order.
func (q *Queue) Pending(ctx context.Context) ([]models.QueuedScan, error) {
	var entries []models.QueuedScan
	err := q.db.NewSelect().
		Model(&entries).
		Where("status = ?", models.QueuedPending).
		Order("captured_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Failed returns entries retained after exhausting retries, for manual
// operator review or export.
func (q *Queue) Failed(ctx context.Context) ([]models.QueuedScan, error) {
	var entries []models.QueuedScan
	err := q.db.NewSelect().
		Model(&entries).
		Where("status = ?", models.QueuedFailed).
		Order("captured_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Counts returns the pending and failed entry counts.
func (q *Queue) Counts(ctx context.Context) (pending, failed int, err error) {
	pending, err = q.db.NewSelect().
		Model((*models.QueuedScan)(nil)).
		Where("status = ?", models.QueuedPending).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	failed, err = q.db.NewSelect().
		Model((*models.QueuedScan)(nil)).
		Where("status = ?", models.QueuedFailed).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return pending, failed, nil
}

// Sync drains pending entries FIFO through the processor. A retryable
// failure stops the pass (the backend is still down); entries past the
// retry budget move to failed and are retained, never deleted silently.
func (q *Queue) Sync(ctx context.Context, process Processor) (SyncSummary, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("load pending scans: %w", err)
	}

	summary := SyncSummary{Total: len(entries)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := q.setStatus(ctx, entry.ID, models.QueuedSyncing, entry.Retries, ""); err != nil {
			return summary, err
		}

		procErr := process(ctx, entry)
		switch {
		case procErr == nil:
			// synced entries are removed; ticket state is the record
			if _, err := q.db.NewDelete().
				Model((*models.QueuedScan)(nil)).
				Where("id = ?", entry.ID).
				Exec(ctx); err != nil {
				return summary, err
			}
			summary.Success++

		case errors.Is(procErr, ErrRetry):
			retries := entry.Retries + 1
			if retries >= q.maxRetries {
				if err := q.setStatus(ctx, entry.ID, models.QueuedFailed, retries, procErr.Error()); err != nil {
					return summary, err
				}
				summary.Failed++
				continue
			}
			if err := q.setStatus(ctx, entry.ID, models.QueuedPending, retries, procErr.Error()); err != nil {
				return summary, err
			}
			// backend still unreachable, later entries would fail too
			return summary, nil

		default:
			if err := q.setStatus(ctx, entry.ID, models.QueuedFailed, entry.Retries+1, procErr.Error()); err != nil {
				return summary, err
			}
			summary.Failed++
		}
	}
	return summary, nil
}

func (q *Queue) setStatus(ctx context.Context, id, status string, retries int, lastError string) error {
	entry := &models.QueuedScan{
		ID:        id,
		Status:    status,
		Retries:   retries,
		LastError: lastError,
	}
	_, err := q.db.NewUpdate().
		Model(entry).
		Column("status", "retries", "last_error").
		Where("id = ?", id).
		Exec(ctx)
	return err
}
