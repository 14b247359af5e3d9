// File: dispatcher/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatcher

import (
	"time"

	"github.com/nemoofnemo/LinuxServer/control"
	"go.uber.org/zap"
)

// Defaults applied by New.
const (
	DefaultWorkers      = 16
	DefaultPollInterval = 100 * time.Millisecond
)

// Strategy selects how idle workers wait for work.
type Strategy int

const (
	// StrategyNotify parks idle workers on a condition variable that
	// Submit and SetStatus signal.
	StrategyNotify Strategy = iota

	// StrategyPoll makes idle or suspended workers sleep one poll
	// interval between queue checks.
	StrategyPoll
)

func (s Strategy) String() string {
	switch s {
	case StrategyNotify:
		return "notify"
	case StrategyPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// ParseStrategy maps "notify" / "poll" to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "notify", "":
		return StrategyNotify, true
	case "poll":
		return StrategyPoll, true
	default:
		return 0, false
	}
}

type config struct {
	workers      int
	pollInterval time.Duration
	strategy     Strategy
	logger       *zap.Logger
	metrics      control.DispatcherMetrics
}

// Option customizes dispatcher construction.
type Option func(*config)

// WithWorkers sets the worker count. Values below 1 are clamped to 1.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithPollInterval sets the idle sleep of StrategyPoll.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithStrategy selects the idle wait strategy.
func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics attaches dispatcher instrumentation.
func WithMetrics(m control.DispatcherMetrics) Option {
	return func(c *config) { c.metrics = m }
}

func defaultConfig() config {
	return config{
		workers:      DefaultWorkers,
		pollInterval: DefaultPollInterval,
		strategy:     StrategyNotify,
	}
}
