package models

import (
	"sync"
	"time"
)

type floodKey struct {
	GroupID string
	UserID  string
}

// FloodTracker counts messages per (group, user) inside a sliding window.
// State is process-scoped: initialized at startup, cleared on restart.
type FloodTracker struct {
	window  time.Duration
	entries map[floodKey][]time.Time
	mu      sync.Mutex
}

// NewFloodTracker creates a tracker with the given window and starts the
// cleanup goroutine.
func NewFloodTracker(window time.Duration) *FloodTracker {
	t := &FloodTracker{
		window:  window,
		entries: make(map[floodKey][]time.Time),
	}

	go t.cleanupExpired()

	return t
}

// Record registers one message and returns the number of messages the user
// sent within the current window, including this one.
func (t *FloodTracker) Record(groupID, userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := floodKey{GroupID: groupID, UserID: userID}
	now := time.Now()
	cutoff := now.Add(-t.window)

	kept := t.entries[key][:0]
	for _, ts := range t.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.entries[key] = kept

	return len(kept)
}

// Reset drops the recorded history for a user, used after a flood warning
// so the next offense starts a fresh window.
func (t *FloodTracker) Reset(groupID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, floodKey{GroupID: groupID, UserID: userID})
}

// cleanupExpired periodically removes stale entries
func (t *FloodTracker) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		cutoff := time.Now().Add(-t.window)
		for key, stamps := range t.entries {
			if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
				delete(t.entries, key)
			}
		}
		t.mu.Unlock()
	}
}
