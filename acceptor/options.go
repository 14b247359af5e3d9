// File: acceptor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package acceptor

import (
	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"go.uber.org/zap"
)

// Defaults applied by New.
const (
	DefaultPort      = 6001
	DefaultBacklog   = 200
	DefaultMaxEvents = 200
	DefaultAddress   = "0.0.0.0"
)

type config struct {
	address        string
	port           int
	backlog        int
	maxEvents      int
	connEvent      string
	readinessEvent string
	logger         *zap.Logger
	metrics        control.AcceptorMetrics
	onError        func(error)
	acceptRate     float64
	acceptBurst    int
}

// Option customizes an Acceptor.
type Option func(*config)

// WithAddress sets the IPv4 bind address.
func WithAddress(addr string) Option {
	return func(c *config) { c.address = addr }
}

// WithPort sets the listen port; 0 picks an ephemeral port.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithBacklog sets the listen backlog.
func WithBacklog(n int) Option {
	return func(c *config) { c.backlog = n }
}

// WithMaxEvents sets how many ready descriptors one wait may report.
func WithMaxEvents(n int) Option {
	return func(c *config) { c.maxEvents = n }
}

// WithConnectionEvent renames the event submitted per accepted connection.
func WithConnectionEvent(name string) Option {
	return func(c *config) { c.connEvent = name }
}

// WithReadinessEvent renames the event submitted when an accepted
// descriptor becomes ready.
func WithReadinessEvent(name string) Option {
	return func(c *config) { c.readinessEvent = name }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics attaches acceptor instrumentation.
func WithMetrics(m control.AcceptorMetrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithErrorHandler receives runtime failures (accept, registration) that
// the loop survives. It is called on the acceptor goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) { c.onError = fn }
}

// WithAcceptRate caps accepted connections per second; connections over
// the limit are closed right after accept. perSecond <= 0 disables the
// limit. burst defaults to one second's worth.
func WithAcceptRate(perSecond float64, burst int) Option {
	return func(c *config) {
		c.acceptRate = perSecond
		c.acceptBurst = burst
	}
}

func defaultConfig() config {
	return config{
		address:        DefaultAddress,
		port:           DefaultPort,
		backlog:        DefaultBacklog,
		maxEvents:      DefaultMaxEvents,
		connEvent:      api.EventConnection,
		readinessEvent: api.EventReadable,
	}
}
