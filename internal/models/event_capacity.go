package models

import "github.com/uptrace/bun"

// EventCapacity holds the configured admission limits. A row with an empty
// tier ID is the event-level limit; zero total means unlimited.
type EventCapacity struct {
	bun.BaseModel `bun:"table:event_capacity"`

	EventID string `bun:"event_id,pk" json:"event_id"`
	TierID  string `bun:"tier_id,pk" json:"tier_id"`
	Total   int    `bun:"total,notnull" json:"total"`
}
