// Package keylock serializes work per key.
//
// Types:
//   - Manager: Hands out one mutex per key and forgets it once no caller
//     holds or waits on it.
//
// Expected outputs:
// - Callers locking the same key run one at a time
// - Callers locking different keys never block each other
// - The manager does not grow with the number of keys ever seen
//
// Used by the signing workflow to make read-modify-write on a filename atomic.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Manager struct {
	entries map[string]*entry
	mutex   sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		entries: make(map[string]*entry),
	}
}

// Lock blocks until key is free and returns the function releasing it.
func (m *Manager) Lock(key string) func() {
	m.mutex.Lock()
	e, exists := m.entries[key]
	if !exists {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mutex.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mutex.Lock()
			defer m.mutex.Unlock()
			e.refs--
			if e.refs == 0 {
				delete(m.entries, key)
			}
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.entries)
}
