// File: fake/logsink.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nemoofnemo/LinuxServer/api"
)

var _ api.LogSink = (*LogSink)(nil)

// LogSink keeps every line in memory.
type LogSink struct {
	mu      sync.Mutex
	lines   []string
	flushes int
}

// Write stores the formatted message with a fixed "[ts] " prefix.
func (l *LogSink) Write(format string, args ...any) (int, error) {
	return l.store("[ts] " + fmt.Sprintf(format, args...))
}

// Print stores the formatted message as is.
func (l *LogSink) Print(format string, args ...any) (int, error) {
	return l.store(fmt.Sprintf(format, args...))
}

// Flush counts calls.
func (l *LogSink) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushes++
	return nil
}

// Lines returns the stored messages.
func (l *LogSink) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// String joins the stored messages.
func (l *LogSink) String() string {
	return strings.Join(l.Lines(), "")
}

// Flushes returns how many times Flush was called.
func (l *LogSink) Flushes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushes
}

func (l *LogSink) store(s string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
	return len(s), nil
}
