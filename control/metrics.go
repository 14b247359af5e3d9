// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus instrumentation for the dispatcher and the acceptor.
// Constructors given a nil registry return no-op collectors, so the core
// runs with zero metrics overhead when metrics are disabled.

package control

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatcherMetrics observes the dispatcher queue and worker pool.
type DispatcherMetrics interface {
	// EventSubmitted counts an event accepted into the queue.
	EventSubmitted(name string)

	// EventRejected counts a Submit for a name without a callback.
	EventRejected(name string)

	// EventDispatched counts a callback invocation.
	EventDispatched(name string)

	// EventOrphaned counts an event whose callback was removed before dispatch.
	EventOrphaned(name string)

	// CallbackPanicked counts a recovered callback panic.
	CallbackPanicked(name string)

	// CallbackDuration observes how long one invocation ran.
	CallbackDuration(name string, d time.Duration)

	// EventsDiscarded counts events still queued when the dispatcher halted.
	EventsDiscarded(n int)

	// SetQueueDepth reports the current queue length.
	SetQueueDepth(n int)
}

// AcceptorMetrics observes the connection acceptor.
type AcceptorMetrics interface {
	ConnectionAccepted()
	ConnectionShed()
	AcceptFailed()
	ReadinessNotified()
}

// NewDispatcherMetrics returns Prometheus-backed dispatcher metrics
// registered on reg, or a no-op implementation when reg is nil.
func NewDispatcherMetrics(reg *prometheus.Registry) DispatcherMetrics {
	if reg == nil {
		return NoopDispatcherMetrics{}
	}
	f := promauto.With(reg)
	return &dispatcherMetrics{
		submitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_events_submitted_total",
			Help: "Events accepted into the dispatcher queue, by event name",
		}, []string{"event"}),
		// unlabeled: rejected names come from arbitrary producers
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_events_rejected_total",
			Help: "Events dropped at submission because no callback was registered",
		}),
		dispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_events_dispatched_total",
			Help: "Callback invocations, by event name",
		}, []string{"event"}),
		orphaned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_events_orphaned_total",
			Help: "Events dequeued after their callback was removed",
		}, []string{"event"}),
		panics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_callback_panics_total",
			Help: "Recovered callback panics, by event name",
		}, []string{"event"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linuxserver_dispatcher_callback_duration_seconds",
			Help:    "Callback run time, by event name",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_dispatcher_events_discarded_total",
			Help: "Events still queued when the dispatcher halted",
		}),
		depth: f.NewGauge(prometheus.GaugeOpts{
			Name: "linuxserver_dispatcher_queue_depth",
			Help: "Current number of queued events",
		}),
	}
}

// NewAcceptorMetrics returns Prometheus-backed acceptor metrics registered
// on reg, or a no-op implementation when reg is nil.
func NewAcceptorMetrics(reg *prometheus.Registry) AcceptorMetrics {
	if reg == nil {
		return NoopAcceptorMetrics{}
	}
	f := promauto.With(reg)
	return &acceptorMetrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_acceptor_connections_accepted_total",
			Help: "TCP connections accepted",
		}),
		shed: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_acceptor_connections_shed_total",
			Help: "Connections closed on accept because the accept rate was exceeded",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_acceptor_accept_errors_total",
			Help: "Non-transient accept failures",
		}),
		readiness: f.NewCounter(prometheus.CounterOpts{
			Name: "linuxserver_acceptor_readiness_events_total",
			Help: "Readiness notifications forwarded for accepted descriptors",
		}),
	}
}

type dispatcherMetrics struct {
	submitted  *prometheus.CounterVec
	rejected   prometheus.Counter
	dispatched *prometheus.CounterVec
	orphaned   *prometheus.CounterVec
	panics     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	discarded  prometheus.Counter
	depth      prometheus.Gauge
}

func (m *dispatcherMetrics) EventSubmitted(name string) {
	m.submitted.WithLabelValues(name).Inc()
}

func (m *dispatcherMetrics) EventRejected(string) {
	m.rejected.Inc()
}

func (m *dispatcherMetrics) EventDispatched(name string) {
	m.dispatched.WithLabelValues(name).Inc()
}

func (m *dispatcherMetrics) EventOrphaned(name string) {
	m.orphaned.WithLabelValues(name).Inc()
}

func (m *dispatcherMetrics) CallbackPanicked(name string) {
	m.panics.WithLabelValues(name).Inc()
}

func (m *dispatcherMetrics) CallbackDuration(name string, d time.Duration) {
	m.duration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *dispatcherMetrics) EventsDiscarded(n int) {
	m.discarded.Add(float64(n))
}

func (m *dispatcherMetrics) SetQueueDepth(n int) {
	m.depth.Set(float64(n))
}

type acceptorMetrics struct {
	accepted  prometheus.Counter
	shed      prometheus.Counter
	failed    prometheus.Counter
	readiness prometheus.Counter
}

func (m *acceptorMetrics) ConnectionAccepted() { m.accepted.Inc() }
func (m *acceptorMetrics) ConnectionShed()     { m.shed.Inc() }
func (m *acceptorMetrics) AcceptFailed()       { m.failed.Inc() }
func (m *acceptorMetrics) ReadinessNotified()  { m.readiness.Inc() }

// NoopDispatcherMetrics discards all observations.
type NoopDispatcherMetrics struct{}

func (NoopDispatcherMetrics) EventSubmitted(string)                  {}
func (NoopDispatcherMetrics) EventRejected(string)                   {}
func (NoopDispatcherMetrics) EventDispatched(string)                 {}
func (NoopDispatcherMetrics) EventOrphaned(string)                   {}
func (NoopDispatcherMetrics) CallbackPanicked(string)                {}
func (NoopDispatcherMetrics) CallbackDuration(string, time.Duration) {}
func (NoopDispatcherMetrics) EventsDiscarded(int)                    {}
func (NoopDispatcherMetrics) SetQueueDepth(int)                      {}

// NoopAcceptorMetrics discards all observations.
type NoopAcceptorMetrics struct{}

func (NoopAcceptorMetrics) ConnectionAccepted() {}
func (NoopAcceptorMetrics) ConnectionShed()     {}
func (NoopAcceptorMetrics) AcceptFailed()       {}
func (NoopAcceptorMetrics) ReadinessNotified()  {}
