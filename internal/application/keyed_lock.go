package application

import (
	"sort"
	"sync"
)

// KeyedLock serialises writers that contend on the same resource key while
// letting unrelated writers proceed concurrently. Conflict checking and the
// subsequent commit are logically two steps, so every write path must hold
// the keys for the faculty member and room it touches across both.
//
// Acquire locks keys in sorted order, which prevents deadlock between callers
// holding overlapping key sets. Mutexes are never discarded; the key space is
// bounded by the number of faculties, rooms, and sessions.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedLock returns an empty keyed lock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until every key is held and returns a release function.
// Duplicate and empty keys are ignored.
func (l *KeyedLock) Acquire(keys ...string) func() {
	ordered := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		mu := l.lockFor(key)
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (l *KeyedLock) lockFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[key] = mu
	}
	return mu
}
