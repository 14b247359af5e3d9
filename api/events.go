// File: api/events.go
// Package api defines core event types for the dispatch engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// Default event names produced by the acceptor.
const (
	EventConnection = "connection"
	EventReadable   = "readable"
)

// Event is a named unit of work routed by the dispatcher to the callback
// registered under Name. Payload is owned by the submitter and is passed
// through untouched.
type Event struct {
	Name    string
	Payload any
}

// Conn is the payload of a connection event. The descriptor is
// non-blocking and registered edge-triggered for read readiness; the
// callback consuming the event owns it and must close it.
type Conn struct {
	FD         int
	ID         string
	RemoteAddr string
	AcceptedAt time.Time
}

// Readiness is the payload of a readiness event for an already accepted
// descriptor. Events holds the api Interest and Ready bits reported by the
// reactor, not the platform poller flags.
type Readiness struct {
	FD     int
	Events uint32
}
