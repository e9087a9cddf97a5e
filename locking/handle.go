package locking

import (
	"sync"
	"time"
)

// Mode selects shared or exclusive locking on a key.
type Mode int

const (
	// Read acquires the key's lock in shared mode.
	Read Mode = iota
	// Write acquires the key's lock in exclusive mode.
	Write
)

// String returns the string representation of the lock mode
func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Handle is the read/write lock shared by every caller operating on the
// same resource key. The manager keeps track of how many callers hold a
// reference and, once the count drops to zero, of when the handle went
// idle so the reaper can reclaim it later.
//
// refCount and idleSince are guarded by the owning Manager's table mutex,
// never by the handle's own lock. idleSince is the zero time while the
// handle is referenced.
type Handle struct {
	mu        sync.RWMutex
	refCount  int
	idleSince time.Time
}

// lock blocks until the handle's lock is held in the given mode.
func (h *Handle) lock(mode Mode) {
	if mode == Write {
		h.mu.Lock()
	} else {
		h.mu.RLock()
	}
}

// unlock releases the handle's lock in the given mode.
func (h *Handle) unlock(mode Mode) {
	if mode == Write {
		h.mu.Unlock()
	} else {
		h.mu.RUnlock()
	}
}

// removable reports whether the handle has been idle long enough to be
// reclaimed. Must be called with the owning Manager's table mutex held.
func (h *Handle) removable(now time.Time, idleThreshold time.Duration) bool {
	return h.refCount == 0 && !h.idleSince.IsZero() && now.Sub(h.idleSince) > idleThreshold
}
