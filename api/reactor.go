// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness-multiplexing reactors
// used by the acceptor (epoll on Linux).

package api

// Interest flags understood by Reactor.Add and Reactor.Modify. They map
// one-to-one onto the platform poller flags.
const (
	InterestRead          uint32 = 0x1
	InterestWrite         uint32 = 0x4
	InterestEdgeTriggered uint32 = 1 << 31
)

// Extra flags that may be set on a ReadyEvent.
const (
	ReadyError  uint32 = 0x8
	ReadyHangup uint32 = 0x10
)

// ReadyEvent is a single readiness notification returned by Wait.
type ReadyEvent struct {
	FD     int
	Events uint32
}

// Reactor multiplexes readiness of many descriptors.
type Reactor interface {
	// Add registers fd with the given interest flags.
	Add(fd int, events uint32) error

	// Modify replaces the interest flags of a registered fd.
	Modify(fd int, events uint32) error

	// Remove deletes fd from the interest set.
	Remove(fd int) error

	// Wait blocks until at least one descriptor is ready or Wake is
	// called. It fills buf and returns the number of valid entries, which
	// never exceeds len(buf). A wake-up alone yields n == 0.
	Wait(buf []ReadyEvent) (int, error)

	// Wake unblocks a concurrent Wait.
	Wake() error

	// Close releases the poller and wake-up descriptors.
	Close() error
}
