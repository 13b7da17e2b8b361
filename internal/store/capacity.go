package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"
)

// Capacity serves live occupancy from redis counters with configured
// limits from postgres. Counters survive gate restarts; the backend can
// rebuild them from scan logs if redis is ever flushed.
type Capacity struct {
	Bun    *bun.DB
	Client *redis.Client
}

func NewCapacity(bunDB *bun.DB, client *redis.Client) *Capacity {
	return &Capacity{Bun: bunDB, Client: client}
}

func occupancyKey(eventID, tierID string) string {
	if tierID == "" {
		return "occupancy:" + eventID
	}
	return fmt.Sprintf("occupancy:%s:%s", eventID, tierID)
}

func (c *Capacity) GetCapacity(ctx context.Context, eventID, tierID string) (models.CapacityStatus, error) {
	status := models.CapacityStatus{EventID: eventID, TierID: tierID}

	var limit models.EventCapacity
	err := c.Bun.NewSelect().
		Model(&limit).
		Where("event_id = ?", eventID).
		Where("tier_id = ?", tierID).
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// no configured limit: unlimited
	case err != nil:
		return status, fmt.Errorf("%w: load capacity limit: %v", scan.ErrTransientNetwork, err)
	default:
		status.Total = limit.Total
	}

	current, err := c.Client.Get(ctx, occupancyKey(eventID, tierID)).Int()
	if err != nil && err != redis.Nil {
		return status, fmt.Errorf("%w: read occupancy: %v", scan.ErrTransientNetwork, err)
	}
	status.Current = current
	return status, nil
}

func (c *Capacity) IncrementOccupancy(ctx context.Context, eventID, tierID string) error {
	if err := c.Client.Incr(ctx, occupancyKey(eventID, "")).Err(); err != nil {
		return fmt.Errorf("%w: increment occupancy: %v", scan.ErrTransientNetwork, err)
	}
	if tierID != "" {
		if err := c.Client.Incr(ctx, occupancyKey(eventID, tierID)).Err(); err != nil {
			return fmt.Errorf("%w: increment tier occupancy: %v", scan.ErrTransientNetwork, err)
		}
	}
	return nil
}

func (c *Capacity) DecrementOccupancy(ctx context.Context, eventID, tierID string) error {
	keys := []string{occupancyKey(eventID, "")}
	if tierID != "" {
		keys = append(keys, occupancyKey(eventID, tierID))
	}
	for _, key := range keys {
		val, err := c.Client.Decr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: decrement occupancy: %v", scan.ErrTransientNetwork, err)
		}
		if val < 0 {
			// counter never goes negative, clamp back to zero
			if err := c.Client.Set(ctx, key, 0, 0).Err(); err != nil {
				return fmt.Errorf("%w: clamp occupancy: %v", scan.ErrTransientNetwork, err)
			}
		}
	}
	return nil
}
