// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger replaces the logger built from the logging section. The log
// sink is then not opened.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithConfigFile makes Run watch path and apply dispatcher status changes
// from it while running.
func WithConfigFile(path string) Option {
	return func(s *Server) {
		s.configPath = path
	}
}

// WithRegistry collects metrics on reg instead of a private registry.
// Metrics are recorded whenever a registry is given, even with the
// endpoint disabled.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}
