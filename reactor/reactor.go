// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral helpers shared by the reactor implementations.

package reactor

import "github.com/nemoofnemo/LinuxServer/api"

// DefaultCapacity is the ready-event buffer size used when none is given.
const DefaultCapacity = 200

// Interest flag shorthands for callers that do not import api.
const (
	Read          = api.InterestRead
	Write         = api.InterestWrite
	EdgeTriggered = api.InterestEdgeTriggered
)

func normalizeCapacity(n int) int {
	if n < 1 {
		return DefaultCapacity
	}
	return n
}
