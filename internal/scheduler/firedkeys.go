package scheduler

import (
	"sync"
	"time"
)

// FiredKeys is the in-memory dedup set for fired alerts. Each key names
// one (task, alert kind, instant) triple. Keys live for at least the
// dedup retention window and are swept afterwards to bound memory. The
// set is process-local; a restart may re-fire alerts still inside the
// trigger window, which is acceptable.
type FiredKeys struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func NewFiredKeys() *FiredKeys {
	return &FiredKeys{keys: make(map[string]time.Time)}
}

// MarkOnce records the key if absent. Returns true if this call inserted
// it, false if it was already present. Callers mark before dispatching
// the alert so overlapping polls cannot both fire.
func (f *FiredKeys) MarkOnce(key string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return false
	}
	f.keys[key] = now
	return true
}

// Unmark removes a key so the alert may fire again. Used when dispatch
// was a no-op (user has notifications disabled).
func (f *FiredKeys) Unmark(key string) {
	f.mu.Lock()
	delete(f.keys, key)
	f.mu.Unlock()
}

// Sweep drops keys marked before cutoff and returns how many were
// dropped.
func (f *FiredKeys) Sweep(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, at := range f.keys {
		if at.Before(cutoff) {
			delete(f.keys, k)
			n++
		}
	}
	return n
}

// Len returns the number of live keys.
func (f *FiredKeys) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}
