// File: internal/concurrency/rwlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scoped shared/exclusive lock.

package concurrency

import (
	"sync"

	"go.uber.org/atomic"
)

// RWLock allows many concurrent shared holders or one exclusive holder.
type RWLock struct {
	mu      sync.RWMutex
	readers atomic.Int64
	writers atomic.Int64
}

// Shared runs fn while holding the lock in shared mode.
func (l *RWLock) Shared(fn func()) {
	l.mu.RLock()
	l.readers.Inc()
	defer l.releaseShared()
	fn()
}

// Exclusive runs fn while holding the lock in exclusive mode.
func (l *RWLock) Exclusive(fn func()) {
	l.mu.Lock()
	l.writers.Inc()
	defer l.releaseExclusive()
	fn()
}

// TryShared runs fn in shared mode if the lock is available without
// blocking. It reports whether fn ran.
func (l *RWLock) TryShared(fn func()) bool {
	if !l.mu.TryRLock() {
		return false
	}
	l.readers.Inc()
	defer l.releaseShared()
	fn()
	return true
}

// TryExclusive runs fn in exclusive mode if the lock is available without
// blocking. It reports whether fn ran.
func (l *RWLock) TryExclusive(fn func()) bool {
	if !l.mu.TryLock() {
		return false
	}
	l.writers.Inc()
	defer l.releaseExclusive()
	fn()
	return true
}

// Readers returns the number of current shared holders.
func (l *RWLock) Readers() int64 { return l.readers.Load() }

// Writers returns 1 while held exclusively, 0 otherwise.
func (l *RWLock) Writers() int64 { return l.writers.Load() }

func (l *RWLock) releaseShared() {
	l.readers.Dec()
	l.mu.RUnlock()
}

func (l *RWLock) releaseExclusive() {
	l.writers.Dec()
	l.mu.Unlock()
}
