// File: api/handler.go
// Package api defines Callback and Submitter interfaces.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Callback processes the payload of a dispatched event.
type Callback interface {
	Run(payload any)
}

// CallbackFunc adapts a plain function to Callback.
type CallbackFunc func(payload any)

// Run calls f(payload).
func (f CallbackFunc) Run(payload any) { f(payload) }

// Submitter accepts named events for asynchronous dispatch. Submit reports
// whether the event was queued; unknown names are dropped silently.
type Submitter interface {
	Submit(name string, payload any) bool
}
