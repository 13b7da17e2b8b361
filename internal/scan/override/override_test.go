package override_test

import (
	"testing"
	"time"

	"ms-scanning/internal/scan/override"

	"github.com/stretchr/testify/assert"
)

func TestActivateAndExpiry(t *testing.T) {
	s := override.NewSession(5*time.Minute, nil)
	now := time.Now()

	assert.False(t, s.IsActive(now))

	s.Activate("staff-1", nil, now)
	assert.True(t, s.IsActive(now))
	assert.Equal(t, "staff-1", s.StaffID(now))
	assert.Equal(t, 5*time.Minute, s.RemainingTime(now))

	// expiry is enforced at point of use, no timer involved
	assert.True(t, s.IsActive(now.Add(4*time.Minute)))
	assert.False(t, s.IsActive(now.Add(5*time.Minute)))
	assert.Zero(t, s.RemainingTime(now.Add(6*time.Minute)))
}

func TestActivateReplacesNotStacks(t *testing.T) {
	s := override.NewSession(5*time.Minute, nil)
	now := time.Now()

	s.Activate("staff-1", []string{"capacity"}, now)
	s.Activate("staff-2", []string{"refund"}, now.Add(time.Minute))

	later := now.Add(2 * time.Minute)
	assert.Equal(t, "staff-2", s.StaffID(later))
	assert.True(t, s.Covers("refund", later))
	assert.False(t, s.Covers("capacity", later))
	// second activation reset the clock
	assert.Equal(t, 4*time.Minute, s.RemainingTime(later))
}

func TestCoversCategories(t *testing.T) {
	s := override.NewSession(time.Minute, nil)
	now := time.Now()

	s.Activate("staff-1", []string{"capacity", "duplicate"}, now)
	assert.True(t, s.Covers("capacity", now))
	assert.True(t, s.Covers("duplicate", now))
	assert.False(t, s.Covers("transfer", now))

	// no categories means everything is covered
	s.Activate("staff-1", nil, now)
	assert.True(t, s.Covers("transfer", now))
}

func TestDeactivateEmitsEvent(t *testing.T) {
	var events []override.Event
	s := override.NewSession(time.Minute, func(ev override.Event) {
		events = append(events, ev)
	})
	now := time.Now()

	s.Activate("staff-1", nil, now)
	s.Deactivate()

	assert.Len(t, events, 2)
	assert.True(t, events[0].Active)
	assert.False(t, events[1].Active)

	// deactivating an inactive session is a no-op
	s.Deactivate()
	assert.Len(t, events, 2)
}

func TestExpiryEmitsDeactivationEvent(t *testing.T) {
	var events []override.Event
	s := override.NewSession(time.Minute, func(ev override.Event) {
		events = append(events, ev)
	})
	now := time.Now()

	s.Activate("staff-1", nil, now)
	assert.False(t, s.IsActive(now.Add(2*time.Minute)))

	assert.Len(t, events, 2)
	assert.False(t, events[1].Active)
}
