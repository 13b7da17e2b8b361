package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-scanning/internal/logger"
)

// Pinger is anything whose reachability defines "online": the backend
// database, redis, or both.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Monitor probes the backend on an interval and broadcasts transitions.
// Gate staff can also force the device offline, e.g. when the venue
// uplink is known to be flapping.
type Monitor struct {
	pingers  []Pinger
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	online bool
	forced bool
	subs   []chan bool
}

func NewMonitor(interval, timeout time.Duration, log *logger.Logger, pingers ...Pinger) *Monitor {
	return &Monitor{
		pingers:  pingers,
		interval: interval,
		timeout:  timeout,
		log:      log,
		online:   true,
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online && !m.forced
}

// Subscribe returns a channel receiving every online/offline transition.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 4)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// ForceOffline pins the gate offline regardless of probe results.
func (m *Monitor) ForceOffline(forced bool) {
	m.mu.Lock()
	was := m.online && !m.forced
	m.forced = forced
	now := m.online && !m.forced
	m.mu.Unlock()

	if was != now {
		m.broadcast(now)
	}
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	reachable := true
	for _, p := range m.pingers {
		if err := p.Ping(pctx); err != nil {
			reachable = false
			if m.log != nil {
				m.log.Debug("CONNECT", fmt.Sprintf("probe failed: %v", err))
			}
			break
		}
	}

	m.mu.Lock()
	was := m.online && !m.forced
	m.online = reachable
	now := m.online && !m.forced
	m.mu.Unlock()

	if was != now {
		if m.log != nil {
			if now {
				m.log.Info("CONNECT", "backend reachable, going online")
			} else {
				m.log.Warn("CONNECT", "backend unreachable, going offline")
			}
		}
		m.broadcast(now)
	}
}

func (m *Monitor) broadcast(online bool) {
	m.mu.Lock()
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// slow subscriber, drop rather than block the monitor
		}
	}
}
