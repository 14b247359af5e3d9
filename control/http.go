// control/http.go
// Author: momentics <momentics@gmail.com>
//
// Introspection endpoint: Prometheus scrape, probe dump, liveness and
// dispatcher status control.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StatusController is the part of the dispatcher the endpoint drives.
type StatusController interface {
	Status() api.Status
	SetStatus(api.Status) error
}

// HTTPServer serves:
//   - GET /metrics       Prometheus text format (503 when metrics are off)
//   - GET /debug/state   JSON of all debug probes
//   - GET /healthz       liveness
//   - GET|PUT /debug/status  read or switch the dispatcher run state
type HTTPServer struct {
	addr   string
	router *mux.Router
	server *http.Server
	log    *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	stopOnce sync.Once
}

// NewHTTPServer builds the endpoint on addr. reg may be nil (metrics
// disabled) and status may be nil (status routes answer 501).
func NewHTTPServer(addr string, reg *prometheus.Registry, probes *DebugProbes, status StatusController, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	if probes == nil {
		probes = NewDebugProbes()
	}
	s := &HTTPServer{
		addr:   addr,
		router: mux.NewRouter(),
		log:    log.Named("http"),
	}

	if reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})).Methods(http.MethodGet)
	} else {
		s.router.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintln(w, "Metrics collection is disabled")
		}).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, probes.DumpState())
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/status", s.statusHandler(status)).
		Methods(http.MethodGet, http.MethodPut)
	s.router.Use(s.loggingMiddleware)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.router }

// Listen binds the endpoint. Addr reports the bound address afterwards.
func (s *HTTPServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("debug endpoint listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address after Listen, the configured one before.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve blocks serving requests until ctx ends or Shutdown is called.
// Listen is called first if needed.
func (s *HTTPServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown stops the endpoint gracefully. It is safe to call repeatedly.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.server.Shutdown(ctx); err != nil {
			err = fmt.Errorf("http shutdown: %w", err)
		}
	})
	return err
}

func (s *HTTPServer) statusHandler(ctl StatusController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctl == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no dispatcher attached"})
			return
		}
		if r.Method == http.MethodPut {
			body, err := io.ReadAll(io.LimitReader(r.Body, 64))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			st, err := api.ParseStatus(strings.TrimSpace(string(body)))
			if err == nil {
				err = ctl.SetStatus(st)
			}
			switch {
			case errors.Is(err, api.ErrHalted):
				writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
				return
			case err != nil:
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			s.log.Info("dispatcher status set over http", zap.Stringer("status", st))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": ctl.Status().String()})
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
