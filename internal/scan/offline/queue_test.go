package offline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan/offline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openQueue(t *testing.T, maxRetries int) *offline.Queue {
	t.Helper()
	path := "file:" + filepath.Join(t.TempDir(), "queue.db")
	q, err := offline.Open(path, maxRetries)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func attempt(payload string, at time.Time) models.ScanAttempt {
	return models.ScanAttempt{
		RawPayload: payload,
		Method:     models.MethodQR,
		StaffID:    "staff-1",
		DeviceID:   "gate-north",
		At:         at,
	}
}

func TestEnqueueAndPendingFIFO(t *testing.T) {
	q := openQueue(t, 3)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, attempt(fmt.Sprintf("tok-%d", i), base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	entries, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "tok-0", entries[0].RawPayload)
	assert.Equal(t, "tok-1", entries[1].RawPayload)
	assert.Equal(t, "tok-2", entries[2].RawPayload)
	assert.Equal(t, models.QueuedPending, entries[0].Status)
}

func TestSyncRemovesProcessedEntries(t *testing.T) {
	q := openQueue(t, 3)
	ctx := context.Background()
	base := time.Now().UTC()

	q.Enqueue(ctx, attempt("tok-0", base))
	q.Enqueue(ctx, attempt("tok-1", base.Add(time.Second)))

	var processed []string
	summary, err := q.Sync(ctx, func(_ context.Context, entry models.QueuedScan) error {
		processed = append(processed, entry.RawPayload)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, offline.SyncSummary{Success: 2, Failed: 0, Total: 2}, summary)
	assert.Equal(t, []string{"tok-0", "tok-1"}, processed)

	pending, failed, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)
}

func TestSyncRetryKeepsEntryPending(t *testing.T) {
	q := openQueue(t, 3)
	ctx := context.Background()

	q.Enqueue(ctx, attempt("tok-0", time.Now().UTC()))

	summary, err := q.Sync(ctx, func(_ context.Context, _ models.QueuedScan) error {
		return fmt.Errorf("%w: backend unreachable", offline.ErrRetry)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Success)
	assert.Equal(t, 0, summary.Failed)

	entries, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Retries)
	assert.Contains(t, entries[0].LastError, "backend unreachable")
}

func TestSyncRetryStopsDrainingOnFirstTransientFailure(t *testing.T) {
	q := openQueue(t, 5)
	ctx := context.Background()
	base := time.Now().UTC()

	q.Enqueue(ctx, attempt("tok-0", base))
	q.Enqueue(ctx, attempt("tok-1", base.Add(time.Second)))

	calls := 0
	_, err := q.Sync(ctx, func(_ context.Context, _ models.QueuedScan) error {
		calls++
		return offline.ErrRetry
	})
	require.NoError(t, err)
	// the pass stops at the first transient failure, later entries untouched
	assert.Equal(t, 1, calls)

	pending, _, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestSyncMarksFailedAfterRetryBudget(t *testing.T) {
	q := openQueue(t, 2)
	ctx := context.Background()

	q.Enqueue(ctx, attempt("tok-0", time.Now().UTC()))

	for i := 0; i < 2; i++ {
		_, err := q.Sync(ctx, func(_ context.Context, _ models.QueuedScan) error {
			return offline.ErrRetry
		})
		require.NoError(t, err)
	}

	pending, failed, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, 1, failed)

	// failed entries are retained for operator export, not deleted
	retained, err := q.Failed(ctx)
	require.NoError(t, err)
	require.Len(t, retained, 1)
	assert.Equal(t, "tok-0", retained[0].RawPayload)
}

func TestSyncPermanentErrorFailsImmediately(t *testing.T) {
	q := openQueue(t, 5)
	ctx := context.Background()
	base := time.Now().UTC()

	q.Enqueue(ctx, attempt("bad-token", base))
	q.Enqueue(ctx, attempt("tok-1", base.Add(time.Second)))

	summary, err := q.Sync(ctx, func(_ context.Context, entry models.QueuedScan) error {
		if entry.RawPayload == "bad-token" {
			return errors.New("credential invalid")
		}
		return nil
	})
	require.NoError(t, err)

	// partial result: one failed, one synced, reported together
	assert.Equal(t, offline.SyncSummary{Success: 1, Failed: 1, Total: 2}, summary)
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := "file:" + filepath.Join(dir, "queue.db")
	ctx := context.Background()

	q, err := offline.Open(path, 3)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, attempt("tok-0", time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, q.Close())

	reopened, err := offline.Open(path, 3)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tok-0", entries[0].RawPayload)
}
