package offline

import (
	"context"
	"fmt"
	"time"

	"ms-scanning/internal/logger"
)

// Worker drains the queue on a fixed interval and immediately when the
// gate transitions from offline to online.
type Worker struct {
	queue    *Queue
	process  Processor
	interval time.Duration
	online   func() bool
	changes  <-chan bool
	log      *logger.Logger

	// OnSummary, when set, receives the result of every non-empty sync
	// pass so the UI can surface partial failures.
	OnSummary func(SyncSummary)
}

func NewWorker(queue *Queue, process Processor, interval time.Duration, online func() bool, changes <-chan bool, log *logger.Logger) *Worker {
	return &Worker{
		queue:    queue,
		process:  process,
		interval: interval,
		online:   online,
		changes:  changes,
		log:      log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case nowOnline, ok := <-w.changes:
			if !ok {
				return
			}
			if nowOnline {
				w.drain(ctx)
			}
		case <-ticker.C:
			if w.online == nil || w.online() {
				w.drain(ctx)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	summary, err := w.queue.Sync(ctx, w.process)
	if err != nil {
		if w.log != nil {
			w.log.Error("SYNC", fmt.Sprintf("sync pass aborted: %v", err))
		}
		return
	}
	if summary.Total == 0 {
		return
	}
	if w.log != nil {
		w.log.LogSync("DRAIN", fmt.Sprintf("%d queued: %d synced, %d failed", summary.Total, summary.Success, summary.Failed))
	}
	if w.OnSummary != nil {
		w.OnSummary(summary)
	}
}
