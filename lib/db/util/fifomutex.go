package util

import "sync"

// FIFOMutex is an exclusive lock that grants ownership strictly in the order
// Lock was called. On Unlock ownership is handed directly to the oldest
// waiter, so a goroutine that keeps re-locking can never overtake others.
//
// The zero value is an unlocked mutex.
type FIFOMutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// Lock acquires the mutex, blocking behind all earlier callers.
func (m *FIFOMutex) Lock() {
	m.mu.Lock()
	if !m.locked && len(m.waiters) == 0 {
		m.locked = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	// the unlocking goroutine transfers ownership by closing ch
	<-ch
}

// TryLock acquires the mutex only if it is free and nobody is waiting.
func (m *FIFOMutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked || len(m.waiters) > 0 {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex or hands it to the next waiter.
// Unlocking a mutex that is not locked is a programming error and panics.
func (m *FIFOMutex) Unlock() {
	m.mu.Lock()
	if !m.locked {
		m.mu.Unlock()
		panic("util: unlock of unlocked FIFOMutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters[0] = nil
	m.waiters = m.waiters[1:]
	m.mu.Unlock()
	close(next)
}

// Waiting returns the number of goroutines queued in Lock.
func (m *FIFOMutex) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
