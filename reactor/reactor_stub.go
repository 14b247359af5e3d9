//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/nemoofnemo/LinuxServer/api"
)

// New returns api.ErrNotSupported on platforms without epoll.
func New(capacity int) (api.Reactor, error) {
	_ = normalizeCapacity(capacity)
	return nil, fmt.Errorf("reactor: %w on this platform", api.ErrNotSupported)
}
