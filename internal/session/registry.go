package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNotFound is returned when a session id is unknown or was evicted.
var ErrNotFound = errors.New("session not found")

type entry struct {
	mu   sync.Mutex
	sess *Session

	// guarded by Registry.mu
	busy     int
	lastUsed time.Time
}

// Registry keeps live sessions in memory. Each session is accessed by at most
// one caller at a time; different sessions proceed independently.
type Registry struct {
	clock Clock

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return NewRegistryWithClock(realClock{})
}

// NewRegistryWithClock creates a Registry with a custom clock (for testing).
func NewRegistryWithClock(clock Clock) *Registry {
	return &Registry{
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// Create starts a new session and returns its initial snapshot.
func (r *Registry) Create() Snapshot {
	s := newWithClock(r.clock)

	r.mu.Lock()
	r.entries[s.ID] = &entry{sess: s, lastUsed: s.CreatedAt}
	r.mu.Unlock()

	slog.Debug("session created", "session_id", s.ID)
	return s.Snapshot()
}

// With runs fn while holding the session's lock. Calls for the same id are
// serialized so a turn completes before the next one starts.
func (r *Registry) With(id string, fn func(*Session) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		e.busy++
		e.lastUsed = r.clock.Now()
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	defer func() {
		r.mu.Lock()
		e.busy--
		e.lastUsed = r.clock.Now()
		r.mu.Unlock()
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Snapshot returns a copy of the session's current state.
func (r *Registry) Snapshot(id string) (Snapshot, error) {
	var snap Snapshot
	err := r.With(id, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep evicts sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with a call in flight are never evicted.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		if e.busy > 0 || e.lastUsed.After(cutoff) {
			continue
		}
		delete(r.entries, id)
		removed++
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				slog.Info("evicted idle sessions", "count", n, "remaining", r.Len())
			}
		}
	}
}
