package debounce

import (
	"sync"
	"time"
)

// Guard suppresses rapid duplicate submissions of the same credential key.
// It tracks the last admission time per key plus the set of keys currently
// in flight; callers must Release a key once processing finishes.
type Guard struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
	inflight map[string]struct{}
}

func New(window time.Duration) *Guard {
	return &Guard{
		window:   window,
		lastSeen: make(map[string]time.Time),
		inflight: make(map[string]struct{}),
	}
}

// Admit reports whether a key may enter processing. A key is refused when
// it is already in flight, or when it was last admitted inside the repeat
// window. An admitted key is marked in flight until released.
func (g *Guard) Admit(key string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[key]; busy {
		return false
	}
	if last, seen := g.lastSeen[key]; seen && now.Sub(last) < g.window {
		return false
	}

	g.lastSeen[key] = now
	g.inflight[key] = struct{}{}
	return true
}

// Release removes a key from the in-flight set immediately.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

// ReleaseAfter keeps the key in flight for a cool-down so accidental
// camera re-triggers on the same physical credential are absorbed.
func (g *Guard) ReleaseAfter(key string, d time.Duration) {
	if d <= 0 {
		g.Release(key)
		return
	}
	time.AfterFunc(d, func() { g.Release(key) })
}

// InFlight reports whether a key is currently being processed.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inflight[key]
	return busy
}
