package store

import (
	"context"
	"fmt"

	"ms-scanning/internal/kafka"
	"ms-scanning/internal/logger"
	"ms-scanning/internal/models"
	"ms-scanning/internal/scan"

	"github.com/uptrace/bun"
)

// Audit persists scan and override log rows and fans them out to kafka.
// The database write is the audit record and must succeed; the kafka
// publish is best-effort and only logged on failure.
type Audit struct {
	Bun      *bun.DB
	Producer *kafka.Producer
	Logger   *logger.Logger
}

func NewAudit(bunDB *bun.DB, producer *kafka.Producer, log *logger.Logger) *Audit {
	return &Audit{Bun: bunDB, Producer: producer, Logger: log}
}

func (a *Audit) LogScan(ctx context.Context, entry models.ScanLog) error {
	if _, err := a.Bun.NewInsert().Model(&entry).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert scan log: %v", scan.ErrTransientNetwork, err)
	}
	if a.Producer != nil {
		if err := a.Producer.PublishScanLog(ctx, entry); err != nil && a.Logger != nil {
			a.Logger.LogKafka("PUBLISH", "scan-results", fmt.Sprintf("failed for %s: %v", entry.TicketID, err))
		}
	}
	return nil
}

func (a *Audit) LogOverride(ctx context.Context, entry models.OverrideLogEntry) error {
	if _, err := a.Bun.NewInsert().Model(&entry).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert override log: %v", scan.ErrTransientNetwork, err)
	}
	if a.Producer != nil {
		if err := a.Producer.PublishOverride(ctx, entry); err != nil && a.Logger != nil {
			a.Logger.LogKafka("PUBLISH", "override-audit", fmt.Sprintf("failed for %s: %v", entry.TicketID, err))
		}
	}
	return nil
}
