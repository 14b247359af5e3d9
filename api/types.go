// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// Status enumerates the lifecycle state of a dispatcher.
type Status int32

const (
	StatusRunning Status = iota
	StatusSuspended
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// ParseStatus maps "running" / "suspended" to a Status. Halted cannot be
// requested from outside and is rejected like any unknown value.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "running":
		return StatusRunning, nil
	case "suspended", "suspend":
		return StatusSuspended, nil
	default:
		return 0, ErrInvalidStatus
	}
}
