package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan"

	"github.com/uptrace/bun"
)

// DB is the bun-backed ticket store against the hosted backend. Lookup
// misses map to scan.ErrTicketNotFound; everything else is assumed to be
// a reachability problem and wrapped in scan.ErrTransientNetwork so the
// coordinator routes the scan offline instead of denying it.
type DB struct {
	Bun *bun.DB
}

func (d *DB) FindByToken(ctx context.Context, token string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("qr_token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return &ticket, nil
}

func (d *DB) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return &ticket, nil
}

func (d *DB) MarkScanned(ctx context.Context, id, staffID string, now time.Time) (*models.Ticket, error) {
	ticket := &models.Ticket{
		ID:        id,
		Status:    models.TicketStatusScanned,
		IsUsed:    true,
		ScannedAt: &now,
	}
	res, err := d.Bun.NewUpdate().
		Model(ticket).
		Column("status", "is_used", "scanned_at").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: mark scanned: %v", scan.ErrTransientNetwork, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, scan.ErrTicketNotFound
	}
	return d.FindByID(ctx, id)
}

func (d *DB) MarkExited(ctx context.Context, id string, now time.Time) (*models.Ticket, error) {
	ticket := &models.Ticket{ID: id, ExitedAt: &now}
	res, err := d.Bun.NewUpdate().
		Model(ticket).
		Column("exited_at").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: mark exited: %v", scan.ErrTransientNetwork, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, scan.ErrTicketNotFound
	}
	return d.FindByID(ctx, id)
}

// MarkIDChecked records that the mandatory identity check for a tier was
// performed at the gate.
func (d *DB) MarkIDChecked(ctx context.Context, id string, now time.Time) error {
	ticket := &models.Ticket{ID: id, IDCheckedAt: &now}
	_, err := d.Bun.NewUpdate().
		Model(ticket).
		Column("id_checked_at").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: mark id checked: %v", scan.ErrTransientNetwork, err)
	}
	return nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return scan.ErrTicketNotFound
	}
	return fmt.Errorf("%w: %v", scan.ErrTransientNetwork, err)
}
