package sse_test

import (
	"context"
	"testing"
	"time"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan/override"
	"ms-scanning/internal/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan sse.GateEvent) sse.GateEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return sse.GateEvent{}
	}
}

func TestEmitterBroadcastsScanResults(t *testing.T) {
	e := sse.NewGateEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx)
	e.ScanProcessed(models.ScanResult{Status: models.ScanValid, Message: "Welcome"})

	ev := receive(t, ch)
	assert.Equal(t, sse.EventScanResult, ev.Type)
	result, ok := ev.Payload.(models.ScanResult)
	require.True(t, ok)
	assert.Equal(t, models.ScanValid, result.Status)
}

// Session changes reach displays through the callback the session is
// constructed with, not through the coordinator.
func TestSessionCallbackReachesSubscribers(t *testing.T) {
	e := sse.NewGateEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx)

	session := override.NewSession(5*time.Minute, e.OverrideChanged)
	session.Activate("staff-1", []string{models.OverrideRefund}, time.Now())

	ev := receive(t, ch)
	assert.Equal(t, sse.EventOverrideState, ev.Type)
	state, ok := ev.Payload.(override.Event)
	require.True(t, ok)
	assert.True(t, state.Active)
	assert.Equal(t, "staff-1", state.StaffID)

	session.Deactivate()

	ev = receive(t, ch)
	state, ok = ev.Payload.(override.Event)
	require.True(t, ok)
	assert.False(t, state.Active)
}

func TestSubscriberRemovedOnCancel(t *testing.T) {
	e := sse.NewGateEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx)
	require.Equal(t, 1, e.ClientCount())

	cancel()
	require.Eventually(t, func() bool { return e.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	// channel is closed once the subscriber is dropped
	_, open := <-ch
	assert.False(t, open)
}
