package service

import (
	"sort"
	"sync"
)

// ClassLocks serialises schedule mutations per class within this process.
// Entries are reference counted and dropped once no goroutine holds or waits
// on them, so the map only grows with concurrent activity.
type ClassLocks struct {
	mu    sync.Mutex
	locks map[string]*classLock
}

type classLock struct {
	mu   sync.Mutex
	refs int
}

// NewClassLocks returns an empty lock set.
func NewClassLocks() *ClassLocks {
	return &ClassLocks{locks: make(map[string]*classLock)}
}

// Lock acquires the locks of every given class in sorted order and returns
// the function releasing them. Duplicate and empty ids are ignored.
func (l *ClassLocks) Lock(classIDs ...string) func() {
	ids := make([]string, 0, len(classIDs))
	seen := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	held := make([]*classLock, 0, len(ids))
	for _, id := range ids {
		held = append(held, l.acquire(id))
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(ids[i], held[i])
		}
	}
}

// Len reports how many classes currently have a lock entry.
func (l *ClassLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *ClassLocks) acquire(id string) *classLock {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &classLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (l *ClassLocks) release(id string, entry *classLock) {
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
