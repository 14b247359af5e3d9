// File: internal/concurrency/mutex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scoped mutual exclusion. Do and TryDo release the lock on every exit
// path of fn, panics included.

package concurrency

import (
	"sync"

	"go.uber.org/atomic"
)

// Mutex is a sync.Mutex that counts its current holders. It satisfies
// sync.Locker and may back a sync.Cond.
type Mutex struct {
	mu   sync.Mutex
	held atomic.Int64
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Inc()
}

// TryLock acquires the mutex if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.held.Inc()
	return true
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.held.Dec()
	m.mu.Unlock()
}

// Do runs fn with the mutex held.
func (m *Mutex) Do(fn func()) {
	m.Lock()
	defer m.Unlock()
	fn()
}

// TryDo runs fn only if the mutex could be acquired without blocking.
func (m *Mutex) TryDo(fn func()) bool {
	if !m.TryLock() {
		return false
	}
	defer m.Unlock()
	fn()
	return true
}

// Held returns 1 while the mutex is held, 0 otherwise.
func (m *Mutex) Held() int64 {
	return m.held.Load()
}
