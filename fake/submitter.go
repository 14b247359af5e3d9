// File: fake/submitter.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/nemoofnemo/LinuxServer/api"
)

var _ api.Submitter = (*Submitter)(nil)

// Submitter records submitted events. Names listed in Reject are refused
// the way a dispatcher refuses unregistered names.
type Submitter struct {
	mu     sync.Mutex
	events   []api.Event
	rejected map[string]int
	reject   map[string]bool
	notify chan api.Event
}

// NewSubmitter creates a submitter accepting every name except reject.
func NewSubmitter(reject ...string) *Submitter {
	s := &Submitter{
		rejected: make(map[string]int),
		reject:   make(map[string]bool, len(reject)),
		notify:   make(chan api.Event, 1024),
	}
	for _, name := range reject {
		s.reject[name] = true
	}
	return s
}

// Submit records the event unless its name is rejected.
func (s *Submitter) Submit(name string, payload any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject[name] {
		s.rejected[name]++
		return false
	}
	ev := api.Event{Name: name, Payload: payload}
	s.events = append(s.events, ev)
	select {
	case s.notify <- ev:
	default:
	}
	return true
}

// Events returns a copy of the recorded events.
func (s *Submitter) Events() []api.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns the recorded payloads submitted under name.
func (s *Submitter) Named(name string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, ev := range s.events {
		if ev.Name == name {
			out = append(out, ev.Payload)
		}
	}
	return out
}

// Rejected returns how many submissions under name were refused.
func (s *Submitter) Rejected(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected[name]
}

// C delivers recorded events as they arrive (buffered, lossy when full).
func (s *Submitter) C() <-chan api.Event {
	return s.notify
}
