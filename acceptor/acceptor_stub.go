//go:build !linux
// +build !linux

// File: acceptor/acceptor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package acceptor

import (
	"context"

	"github.com/nemoofnemo/LinuxServer/api"
)

// Init reports api.ErrNotSupported outside Linux.
func (a *Acceptor) Init() error {
	return api.NewError(api.ErrCodeNotSupported, "acceptor requires epoll").Wrap(api.ErrNotSupported)
}

// Run reports api.ErrNotSupported outside Linux.
func (a *Acceptor) Run(context.Context) error {
	return api.ErrNotSupported
}

// Close is a no-op outside Linux.
func (a *Acceptor) Close() error {
	return nil
}

// CloseConn reports api.ErrNotSupported outside Linux.
func (a *Acceptor) CloseConn(int) error {
	return api.ErrNotSupported
}
