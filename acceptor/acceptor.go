// File: acceptor/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package acceptor

import (
	"net"
	"strconv"
	"sync"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Acceptor accepts TCP connections and turns them into dispatcher events.
type Acceptor struct {
	cfg     config
	submit  api.Submitter
	log     *zap.Logger
	metrics control.AcceptorMetrics
	limiter *rate.Limiter // nil: unlimited

	mu      sync.Mutex // guards lfd, reactor, closed and loop.Add
	lfd     int
	port    int
	reactor api.Reactor
	closed  bool
	loop    sync.WaitGroup

	ready    []api.ReadyEvent
	stopped  atomic.Bool
	accepted atomic.Int64
}

// New builds an acceptor submitting to s. Init must be called before Run.
func New(s api.Submitter, opts ...Option) *Acceptor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backlog < 1 {
		cfg.backlog = DefaultBacklog
	}
	if cfg.maxEvents < 1 {
		cfg.maxEvents = DefaultMaxEvents
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.metrics == nil {
		cfg.metrics = control.NoopAcceptorMetrics{}
	}
	a := &Acceptor{
		cfg:     cfg,
		submit:  s,
		log:     cfg.logger.Named("acceptor"),
		metrics: cfg.metrics,
		lfd:     -1,
		port:    cfg.port,
		ready:   make([]api.ReadyEvent, cfg.maxEvents),
	}
	if cfg.acceptRate > 0 {
		burst := cfg.acceptBurst
		if burst < 1 {
			burst = max(1, int(cfg.acceptRate))
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.acceptRate), burst)
	}
	return a
}

// Port returns the bound port once Init succeeded, the configured port
// before.
func (a *Acceptor) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Addr returns host:port of the listening socket.
func (a *Acceptor) Addr() string {
	return net.JoinHostPort(a.cfg.address, strconv.Itoa(a.Port()))
}

// Backlog returns the configured listen backlog.
func (a *Acceptor) Backlog() int { return a.cfg.backlog }

// MaxEvents returns the ready-event buffer size.
func (a *Acceptor) MaxEvents() int { return a.cfg.maxEvents }

// Connections returns the number of connections accepted so far.
func (a *Acceptor) Connections() int64 { return a.accepted.Load() }

// Stop makes a running Run return. It is safe to call from any goroutine
// and before Run starts; a stopped acceptor does not run again.
func (a *Acceptor) Stop() {
	a.stopped.Store(true)
	a.mu.Lock()
	r := a.reactor
	a.mu.Unlock()
	if r != nil {
		if err := r.Wake(); err != nil {
			a.log.Debug("wake failed", zap.Error(err))
		}
	}
}

// Release removes fd from the readiness set. Callbacks owning a
// connection call it before closing the descriptor. After Close it
// returns api.ErrAcceptorClosed without touching the reactor.
func (a *Acceptor) Release(fd int) error {
	a.mu.Lock()
	r, closed := a.reactor, a.closed
	a.mu.Unlock()
	if closed {
		return api.ErrAcceptorClosed
	}
	if r == nil {
		return api.ErrNotInitialized
	}
	return r.Remove(fd)
}

func (a *Acceptor) fail(err error) {
	a.metrics.AcceptFailed()
	a.log.Warn("acceptor error", zap.Error(err))
	if a.cfg.onError != nil {
		a.cfg.onError(err)
	}
}
