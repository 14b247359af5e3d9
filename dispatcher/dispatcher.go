// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher owns the callback registry and the event queue. The registry
// is read-heavy and sits behind a shared/exclusive lock; the queue is
// always mutated and sits behind a plain mutex.

package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eapache/queue"
	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"github.com/nemoofnemo/LinuxServer/internal/concurrency"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Ensure compile-time interface compliance.
var (
	_ api.Submitter        = (*Dispatcher)(nil)
	_ api.GracefulShutdown = (*Dispatcher)(nil)
)

// Dispatcher routes named events to registered callbacks on a fixed pool
// of worker goroutines.
type Dispatcher struct {
	cfg     config
	log     *zap.Logger
	metrics control.DispatcherMetrics

	registry  concurrency.RWLock
	callbacks map[string]api.Callback

	qmu   concurrency.Mutex
	cond  *sync.Cond // signalled on Submit, SetStatus and halt
	queue *queue.Queue

	status   atomic.Int32 // written only with qmu held
	haltCh   chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}
}

// New validates the options, starts the worker pool and returns once every
// worker is running.
func New(opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.pollInterval < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "negative poll interval").
			WithContext("poll_interval", cfg.pollInterval).Wrap(api.ErrInvalidArgument)
	}
	if cfg.pollInterval == 0 {
		cfg.pollInterval = DefaultPollInterval
	}
	if cfg.strategy != StrategyNotify && cfg.strategy != StrategyPoll {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown wait strategy").
			WithContext("strategy", int(cfg.strategy)).Wrap(api.ErrInvalidArgument)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.metrics == nil {
		cfg.metrics = control.NoopDispatcherMetrics{}
	}

	d := &Dispatcher{
		cfg:       cfg,
		log:       cfg.logger.Named("dispatcher"),
		metrics:   cfg.metrics,
		callbacks: make(map[string]api.Callback),
		queue:     queue.New(),
		haltCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.qmu)
	d.status.Store(int32(api.StatusRunning))

	var ready sync.WaitGroup
	ready.Add(cfg.workers)
	d.wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go d.work(i, &ready)
	}
	ready.Wait()

	d.log.Debug("dispatcher started",
		zap.Int("workers", cfg.workers),
		zap.Stringer("strategy", cfg.strategy),
		zap.Duration("poll_interval", cfg.pollInterval))
	return d, nil
}

// AddCallback registers cb under name. If name is already registered the
// existing callback is kept and nil is returned.
func (d *Dispatcher) AddCallback(name string, cb api.Callback) error {
	if name == "" || cb == nil {
		return fmt.Errorf("add callback %q: %w", name, api.ErrInvalidArgument)
	}
	d.registry.Exclusive(func() {
		if _, ok := d.callbacks[name]; !ok {
			d.callbacks[name] = cb
		}
	})
	return nil
}

// AddCallbackFunc registers fn under name.
func (d *Dispatcher) AddCallbackFunc(name string, fn func(payload any)) error {
	if fn == nil {
		return fmt.Errorf("add callback %q: %w", name, api.ErrInvalidArgument)
	}
	return d.AddCallback(name, api.CallbackFunc(fn))
}

// RemoveCallback unregisters name. Removing an unknown name is a no-op.
// Events for name that are still queued will be dropped when dequeued.
func (d *Dispatcher) RemoveCallback(name string) error {
	if name == "" {
		return fmt.Errorf("remove callback: %w", api.ErrInvalidArgument)
	}
	d.registry.Exclusive(func() {
		delete(d.callbacks, name)
	})
	return nil
}

// HasCallback reports whether name is registered.
func (d *Dispatcher) HasCallback(name string) bool {
	_, ok := d.lookup(name)
	return ok
}

// Callbacks returns the registered names in sorted order.
func (d *Dispatcher) Callbacks() []string {
	var names []string
	d.registry.Shared(func() {
		names = make([]string, 0, len(d.callbacks))
		for name := range d.callbacks {
			names = append(names, name)
		}
	})
	sort.Strings(names)
	return names
}

// Submit queues an event for the callback registered under name and
// reports whether it was queued. Events for unregistered names, and any
// event submitted after halt, are dropped without error.
func (d *Dispatcher) Submit(name string, payload any) bool {
	if _, ok := d.lookup(name); !ok {
		d.metrics.EventRejected(name)
		return false
	}

	queued := false
	d.qmu.Do(func() {
		if d.Status() == api.StatusHalted {
			return
		}
		d.queue.Add(api.Event{Name: name, Payload: payload})
		d.metrics.SetQueueDepth(d.queue.Length())
		queued = true
	})
	if !queued {
		return false
	}
	d.cond.Signal()
	d.metrics.EventSubmitted(name)
	return true
}

// SetStatus switches between running and suspended. Any other status is
// rejected with api.ErrInvalidStatus; a halted dispatcher returns
// api.ErrHalted.
func (d *Dispatcher) SetStatus(st api.Status) error {
	if st != api.StatusRunning && st != api.StatusSuspended {
		return fmt.Errorf("set status %s: %w", st, api.ErrInvalidStatus)
	}
	var err error
	d.qmu.Do(func() {
		if d.Status() == api.StatusHalted {
			err = api.ErrHalted
			return
		}
		d.status.Store(int32(st))
	})
	if err != nil {
		return err
	}
	d.cond.Broadcast()
	d.log.Debug("dispatcher status changed", zap.Stringer("status", st))
	return nil
}

// Status returns the current lifecycle state.
func (d *Dispatcher) Status() api.Status {
	return api.Status(d.status.Load())
}

// Workers returns the size of the worker pool.
func (d *Dispatcher) Workers() int {
	return d.cfg.workers
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	n := 0
	d.qmu.Do(func() { n = d.queue.Length() })
	return n
}

// Shutdown halts the dispatcher, discards queued events and waits for all
// workers to exit. It returns ctx.Err() if ctx ends first; the workers
// still exit once their in-flight callbacks return. Shutdown is
// idempotent.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.haltOnce.Do(d.halt)
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (d *Dispatcher) Close() error {
	return d.Shutdown(context.Background())
}

func (d *Dispatcher) halt() {
	discarded := 0
	d.qmu.Do(func() {
		d.status.Store(int32(api.StatusHalted))
		discarded = d.queue.Length()
		d.queue = queue.New()
		d.metrics.SetQueueDepth(0)
	})
	close(d.haltCh)
	d.cond.Broadcast()

	d.metrics.EventsDiscarded(discarded)
	d.log.Debug("dispatcher halted", zap.Int("discarded", discarded))

	go func() {
		d.wg.Wait()
		close(d.done)
	}()
}

func (d *Dispatcher) lookup(name string) (api.Callback, bool) {
	var (
		cb api.Callback
		ok bool
	)
	d.registry.Shared(func() {
		cb, ok = d.callbacks[name]
	})
	return cb, ok
}
