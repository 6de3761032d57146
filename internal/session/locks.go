package session

import (
	"sync"
)

// lockMap provides a per-session mutex so concurrent appends to the same
// summary file serialize while different sessions proceed in parallel
type lockMap struct {
	locks sync.Map // sessionID -> *sync.Mutex
}

func (m *lockMap) get(sessionID string) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu, _ := lock.(*sync.Mutex)
	return mu
}

// Lock acquires the lock for a session
func (m *lockMap) Lock(sessionID string) {
	m.get(sessionID).Lock()
}

// Unlock releases the lock for a session
func (m *lockMap) Unlock(sessionID string) {
	m.get(sessionID).Unlock()
}

// Delete removes the lock for a session (call after the summary is removed)
func (m *lockMap) Delete(sessionID string) {
	m.locks.Delete(sessionID)
}
