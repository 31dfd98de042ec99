package inventory

import "sync"

// resourceLocks hands out one mutex per resource id. Entries are dropped when
// the last holder releases them so the map only holds ids in use.
type resourceLocks struct {
	mu    sync.Mutex
	locks map[ResourceID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newResourceLocks() *resourceLocks {
	return &resourceLocks{locks: make(map[ResourceID]*lockEntry)}
}

// Lock blocks until id is free and returns the matching unlock func.
func (l *resourceLocks) Lock(id ResourceID) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *resourceLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
