package override

import (
	"sync"
	"time"
)

// Event is emitted whenever session state changes so the operator UI can
// reflect it. The session itself holds no UI concerns.
type Event struct {
	Active     bool      `json:"active"`
	StaffID    string    `json:"staff_id,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

// Session is the single process-wide bypass session. Expiry is wall-clock
// based and enforced at every IsActive/Covers check; there is no timer.
type Session struct {
	mu          sync.Mutex
	ttl         time.Duration
	staffID     string
	categories  map[string]struct{}
	activatedAt time.Time
	expiresAt   time.Time
	active      bool
	notify      func(Event)
}

// NewSession creates a session manager with the given lifetime per
// activation. notify may be nil.
func NewSession(ttl time.Duration, notify func(Event)) *Session {
	return &Session{ttl: ttl, notify: notify}
}

// Activate starts (or restarts) the session. Activating while one is
// already active replaces it; sessions never stack. An empty category list
// covers every rule category.
func (s *Session) Activate(staffID string, categories []string, now time.Time) Event {
	s.mu.Lock()
	s.staffID = staffID
	s.activatedAt = now
	s.expiresAt = now.Add(s.ttl)
	s.active = true
	s.categories = nil
	if len(categories) > 0 {
		s.categories = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			s.categories[c] = struct{}{}
		}
	}
	ev := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(ev)
	return ev
}

// Deactivate ends the session immediately.
func (s *Session) Deactivate() {
	s.mu.Lock()
	wasActive := s.active
	s.clearLocked()
	s.mu.Unlock()

	if wasActive {
		s.emit(Event{Active: false})
	}
}

// IsActive reports whether a session is live at the given instant. An
// expired session is cleared and its deactivation event emitted.
func (s *Session) IsActive(now time.Time) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	if !now.Before(s.expiresAt) {
		s.clearLocked()
		s.mu.Unlock()
		s.emit(Event{Active: false})
		return false
	}
	s.mu.Unlock()
	return true
}

// Covers reports whether an active session bypasses the given rule
// category.
func (s *Session) Covers(category string, now time.Time) bool {
	if !s.IsActive(now) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	if s.categories == nil {
		return true
	}
	_, ok := s.categories[category]
	return ok
}

// RemainingTime returns how long the session has left, zero when inactive.
func (s *Session) RemainingTime(now time.Time) time.Duration {
	if !s.IsActive(now) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.expiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StaffID returns the activating staff identity, empty when inactive.
func (s *Session) StaffID(now time.Time) string {
	if !s.IsActive(now) {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staffID
}

// Snapshot returns the current session state for status endpoints.
func (s *Session) Snapshot(now time.Time) Event {
	if !s.IsActive(now) {
		return Event{Active: false}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Event {
	ev := Event{
		Active:    s.active,
		StaffID:   s.staffID,
		ExpiresAt: s.expiresAt,
	}
	for c := range s.categories {
		ev.Categories = append(ev.Categories, c)
	}
	return ev
}

func (s *Session) clearLocked() {
	s.active = false
	s.staffID = ""
	s.categories = nil
	s.activatedAt = time.Time{}
	s.expiresAt = time.Time{}
}

func (s *Session) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}
