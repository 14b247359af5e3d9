// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot reload, runtime metrics and debug introspection for
// the linuxserver host.
//
// Provides:
//   - Config loading from YAML, environment and defaults (viper)
//   - File watching with reload hooks
//   - Prometheus collectors for the dispatcher and the acceptor
//   - Debug probe registry and the /metrics, /debug/state, /healthz endpoint
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
