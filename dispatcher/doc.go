// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package dispatcher implements a named-event dispatch engine: a fixed
// pool of worker goroutines draining one shared FIFO queue of
// (name, payload) events and invoking the callback registered under each
// name.
//
// Registration is first-write-wins. Submit drops events for names without
// a callback, and a worker drops an event whose callback was removed after
// submission; neither case is an error. Dequeue order is FIFO, completion
// order across workers is not.
//
// Halting is one-way and happens only through Shutdown/Close, which
// discard events still queued and join the workers after any in-flight
// callback returns. Never call Shutdown from inside a callback.
package dispatcher
