package store

import "sync"

// entryLocks hands out one mutex per entry id. Locks are dropped once no
// goroutine holds or waits for them.
type entryLocks struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	sync.Mutex
	refs int
}

func newEntryLocks() *entryLocks {
	return &entryLocks{locks: make(map[string]*entryLock)}
}

// Lock locks id and returns the matching unlock function.
func (l *entryLocks) Lock(id string) func() {
	l.mu.Lock()
	el, ok := l.locks[id]
	if !ok {
		el = &entryLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.Lock()
	return func() {
		el.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
