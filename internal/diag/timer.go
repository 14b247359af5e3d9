// File: internal/diag/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package diag

import "time"

// Timer measures the interval between Start and one of the Stop calls on
// the monotonic clock. Stop may be called repeatedly.
type Timer struct {
	start time.Time
}

// Start records the beginning of the interval.
func (t *Timer) Start() {
	t.start = time.Now()
}

// Elapsed returns the interval since Start.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop returns elapsed milliseconds.
func (t *Timer) Stop() int64 {
	return t.Elapsed().Milliseconds()
}

// StopMicro returns elapsed microseconds.
func (t *Timer) StopMicro() int64 {
	return t.Elapsed().Microseconds()
}

// StopSeconds returns elapsed whole seconds.
func (t *Timer) StopSeconds() int64 {
	return int64(t.Elapsed() / time.Second)
}
