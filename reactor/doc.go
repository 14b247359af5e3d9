// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness-multiplexing backend of the
// acceptor: epoll on Linux, with an eventfd registered alongside the user
// descriptors so that Wake can unblock a Wait that has no timeout.
package reactor
