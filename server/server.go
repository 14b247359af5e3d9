// File: server/server.go
// Package server wires configuration, logging, metrics, the dispatcher and
// the acceptor into one host process.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/nemoofnemo/LinuxServer/acceptor"
	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"github.com/nemoofnemo/LinuxServer/dispatcher"
	"github.com/nemoofnemo/LinuxServer/internal/diag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by a second Run.
var ErrAlreadyRunning = errors.New("server already running")

var _ api.GracefulShutdown = (*Server)(nil)

// Server is the host facade around dispatcher and acceptor.
type Server struct {
	cfg        *control.Config
	configPath string

	log      *zap.Logger
	sink     *diag.LogSink
	registry *prometheus.Registry
	probes   *control.DebugProbes
	reloader *control.Reloader

	dispatcher *dispatcher.Dispatcher
	acceptor   *acceptor.Acceptor
	http       *control.HTTPServer

	mu       sync.Mutex
	running  bool
	ready    chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// New validates cfg (nil: defaults) and builds every component. Nothing
// listens until Run.
func New(cfg *control.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	control.ApplyDefaults(cfg)
	if err := control.Validate(cfg); err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "invalid configuration").
			Wrap(fmt.Errorf("%w: %w", api.ErrInvalidArgument, err))
	}
	strategy, ok := dispatcher.ParseStrategy(cfg.Dispatcher.Strategy)
	if !ok {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown dispatcher strategy").
			WithContext("strategy", cfg.Dispatcher.Strategy).Wrap(api.ErrInvalidArgument)
	}
	initial, err := api.ParseStatus(cfg.Dispatcher.Status)
	if err != nil {
		return nil, fmt.Errorf("dispatcher status %q: %w", cfg.Dispatcher.Status, err)
	}

	s := &Server{
		cfg:   cfg,
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		sink, err := diag.OpenLogSink(cfg.Logging.Output, cfg.Logging.Mode)
		if err != nil {
			return nil, api.NewError(api.ErrCodeInit, "open log sink").Wrap(err)
		}
		log, err := sink.Logger(cfg.Logging.Level)
		if err != nil {
			_ = sink.Close()
			return nil, api.NewError(api.ErrCodeInit, "build logger").Wrap(err)
		}
		s.sink, s.log = sink, log
	}

	if s.registry == nil && cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	d, err := dispatcher.New(
		dispatcher.WithWorkers(cfg.Dispatcher.Workers),
		dispatcher.WithPollInterval(cfg.Dispatcher.PollInterval),
		dispatcher.WithStrategy(strategy),
		dispatcher.WithLogger(s.log),
		dispatcher.WithMetrics(control.NewDispatcherMetrics(s.registry)),
	)
	if err != nil {
		s.closeSink()
		return nil, err
	}
	if initial != api.StatusRunning {
		_ = d.SetStatus(initial)
	}
	s.dispatcher = d

	s.acceptor = acceptor.New(d,
		acceptor.WithAddress(cfg.Listener.Address),
		acceptor.WithPort(cfg.Listener.Port),
		acceptor.WithBacklog(cfg.Listener.Backlog),
		acceptor.WithMaxEvents(cfg.Listener.MaxEvents),
		acceptor.WithAcceptRate(cfg.Listener.AcceptRate, cfg.Listener.AcceptBurst),
		acceptor.WithLogger(s.log),
		acceptor.WithMetrics(control.NewAcceptorMetrics(s.registry)),
	)

	s.probes = control.NewDebugProbes()
	s.registerProbes()

	if cfg.Metrics.Enabled {
		addr := net.JoinHostPort(cfg.Metrics.Address, strconv.Itoa(cfg.Metrics.Port))
		s.http = control.NewHTTPServer(addr, s.registry, s.probes, d, s.log)
	}

	s.reloader = control.NewReloader(s.log)
	s.reloader.OnReload(s.applyConfig)
	return s, nil
}

// Handle registers cb for events named name.
func (s *Server) Handle(name string, cb api.Callback) error {
	return s.dispatcher.AddCallback(name, cb)
}

// HandleFunc registers fn for events named name.
func (s *Server) HandleFunc(name string, fn func(payload any)) error {
	return s.dispatcher.AddCallbackFunc(name, fn)
}

// Dispatcher returns the event dispatcher.
func (s *Server) Dispatcher() *dispatcher.Dispatcher { return s.dispatcher }

// Acceptor returns the connection acceptor.
func (s *Server) Acceptor() *acceptor.Acceptor { return s.acceptor }

// Logger returns the host logger.
func (s *Server) Logger() *zap.Logger { return s.log }

// Probes returns the debug probe registry.
func (s *Server) Probes() *control.DebugProbes { return s.probes }

// Reloader returns the config reload fan-out; extra hooks may be added
// before Run.
func (s *Server) Reloader() *control.Reloader { return s.reloader }

// Ready is closed once the listener (and the debug endpoint, if enabled)
// is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// HTTPAddr returns the bound debug endpoint address, or "" if disabled.
func (s *Server) HTTPAddr() string {
	if s.http == nil {
		return ""
	}
	return s.http.Addr()
}

// Run binds the listener and serves until ctx ends or the accept loop
// fails, then shuts everything down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	if err := s.start(); err != nil {
		return errors.Join(err, s.shutdownWithTimeout())
	}
	close(s.ready)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- s.acceptor.Run(ctx) }()
	if s.http != nil {
		go func() { errCh <- s.http.Serve(ctx) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			s.log.Error("server component failed", zap.Error(runErr))
		}
	}
	s.log.Info("shutting down")
	return errors.Join(runErr, s.shutdownWithTimeout())
}

// Shutdown stops accepting, closes the debug endpoint and halts the
// dispatcher, discarding queued events. It is idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		var errs []error
		if err := s.acceptor.Close(); err != nil {
			errs = append(errs, err)
		}
		if s.http != nil {
			if err := s.http.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher shutdown: %w", err))
		}
		s.log.Info("server stopped", zap.Int64("connections", s.acceptor.Connections()))
		_ = s.log.Sync()
		s.closeSink()
		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}

func (s *Server) start() error {
	if err := s.acceptor.Init(); err != nil {
		return err
	}
	if s.http != nil {
		if err := s.http.Listen(); err != nil {
			return api.NewError(api.ErrCodeInit, "debug endpoint").Wrap(err)
		}
	}
	if s.configPath != "" {
		if err := s.reloader.Watch(s.configPath); err != nil {
			return api.NewError(api.ErrCodeInit, "watch config").Wrap(err)
		}
	}
	s.log.Info("server started",
		zap.String("listener", s.acceptor.Addr()),
		zap.Int("workers", s.dispatcher.Workers()),
		zap.Bool("metrics", s.http != nil))
	return nil
}

func (s *Server) shutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// applyConfig applies the live-reloadable part of a new configuration.
// Everything else needs a restart and is only reported.
func (s *Server) applyConfig(cfg *control.Config) {
	st, err := api.ParseStatus(cfg.Dispatcher.Status)
	if err != nil {
		s.log.Warn("ignoring dispatcher status", zap.String("status", cfg.Dispatcher.Status))
		return
	}
	if st != s.dispatcher.Status() {
		if err := s.dispatcher.SetStatus(st); err != nil {
			s.log.Warn("dispatcher status not applied", zap.Error(err))
			return
		}
		s.log.Info("dispatcher status reloaded", zap.Stringer("status", st))
	}
	if cfg.Listener != s.cfg.Listener || cfg.Dispatcher.Workers != s.cfg.Dispatcher.Workers {
		s.log.Warn("listener and worker changes take effect after restart")
	}
}

func (s *Server) registerProbes() {
	d, a := s.dispatcher, s.acceptor
	s.probes.RegisterProbe("dispatcher.status", func() any { return d.Status().String() })
	s.probes.RegisterProbe("dispatcher.pending", func() any { return d.Pending() })
	s.probes.RegisterProbe("dispatcher.workers", func() any { return d.Workers() })
	s.probes.RegisterProbe("dispatcher.callbacks", func() any { return d.Callbacks() })
	s.probes.RegisterProbe("acceptor.addr", func() any { return a.Addr() })
	s.probes.RegisterProbe("acceptor.connections", func() any { return a.Connections() })
}

func (s *Server) closeSink() {
	if s.sink == nil {
		return
	}
	_ = s.sink.Flush()
	_ = s.sink.Close()
}
