package state

import "sync"

// Locker hands out one mutex per session and forgets it once nobody holds or waits for it.
type Locker struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker returns an empty keyed mutex.
func NewLocker() *Locker {
	return &Locker{entries: make(map[int64]*lockEntry)}
}

// Lock blocks until the session's mutex is held and returns its release func.
func (l *Locker) Lock(userID int64) func() {
	l.mu.Lock()
	entry, ok := l.entries[userID]
	if !ok {
		entry = &lockEntry{}
		l.entries[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, userID)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many sessions currently have a live mutex.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
