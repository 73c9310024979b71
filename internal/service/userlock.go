package service

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// userLocks serializes session mutation (login, refresh, logout) per user id
// so a concurrent refresh and logout cannot interleave their cache and ledger
// updates. Entries are reference-counted and removed when the last holder
// releases, so the map does not grow with the user population.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: map[uuid.UUID]*userLock{}}
}

// lock acquires the mutex for the user and returns the release func.
func (l *userLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &userLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
