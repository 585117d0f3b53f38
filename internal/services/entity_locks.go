// internal/services/entity_locks.go
package services

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// EntityLocks serializes money-moving operations per entity. Database
// transactions keep the rows consistent; these locks keep the settlement
// call and the surrounding transaction atomic with respect to each other.
// Each operation acquires exactly one key, so no ordering discipline is
// needed between them.
type EntityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEntityLocks() *EntityLocks {
	return &EntityLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its release function.
func (l *EntityLocks) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func episodeLockKey(episodeID int64) string {
	return "episode:" + strconv.FormatInt(episodeID, 10)
}

func creatorLockKey(creatorID uuid.UUID) string {
	return "creator:" + creatorID.String()
}

const platformLockKey = "platform"
