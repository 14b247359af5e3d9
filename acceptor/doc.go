// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package acceptor owns one listening TCP socket and a readiness
// multiplexer. Each accepted connection is made non-blocking, registered
// edge-triggered for reads and handed to a dispatcher as a "connection"
// event; later readiness of that descriptor becomes a "readable" event.
// The acceptor never reads or writes application data.
//
// Ownership: once a connection event is queued, the consuming callback
// owns the descriptor and must close it with CloseConn (or Release it and
// close it itself). If the event cannot be queued the acceptor closes the
// descriptor.
package acceptor
