package main

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-scanning/internal/models"
)

// runMigrations bootstraps the backend tables the gate reads and writes.
// Tickets and capacity limits are normally owned by the ticketing backend;
// creating them here keeps a standalone deployment usable.
func runMigrations(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Ticket)(nil),
		(*models.EventCapacity)(nil),
		(*models.ScanLog)(nil),
		(*models.OverrideLogEntry)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}
