// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// GracefulShutdown is implemented by components that stop their
// goroutines and release resources on request.
type GracefulShutdown interface {
	// Shutdown stops the component and waits for its goroutines, giving up
	// when ctx is done.
	Shutdown(ctx context.Context) error
}
