//go:build linux
// +build linux

// File: acceptor/acceptor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux accept loop on a raw non-blocking socket and the epoll reactor.

package acceptor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/internal/diag"
	"github.com/nemoofnemo/LinuxServer/reactor"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// acceptRetryDelay throttles the loop after a non-transient accept error
// (EMFILE and friends) so a level-triggered listener does not spin.
const acceptRetryDelay = 5 * time.Millisecond

// Init creates, binds and listens on the TCP socket and registers it with
// a new reactor, level-triggered for reads. On failure everything created
// so far is closed and nothing stays registered.
func (a *Acceptor) Init() (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return api.ErrAcceptorClosed
	}
	if a.reactor != nil {
		return api.NewError(api.ErrCodeInit, "acceptor already initialized")
	}

	ip := net.ParseIP(a.cfg.address).To4()
	if ip == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "bind address is not IPv4").
			WithContext("address", a.cfg.address).Wrap(api.ErrInvalidArgument)
	}
	if a.cfg.port < 0 || a.cfg.port > 65535 {
		return api.NewError(api.ErrCodeInvalidArgument, "port out of range").
			WithContext("port", a.cfg.port).Wrap(api.ErrInvalidArgument)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return initError("socket", err)
	}
	defer func() {
		if err != nil {
			_ = unix.Close(fd)
		}
	}()

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return initError("setsockopt SO_REUSEADDR", err)
	}
	sa := &unix.SockaddrInet4{Port: a.cfg.port}
	copy(sa.Addr[:], ip)
	if err = unix.Bind(fd, sa); err != nil {
		return initError("bind "+net.JoinHostPort(a.cfg.address, strconv.Itoa(a.cfg.port)), err)
	}
	if err = unix.Listen(fd, a.cfg.backlog); err != nil {
		return initError("listen", err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		return initError("getsockname", err)
	}

	r, err := reactor.New(a.cfg.maxEvents)
	if err != nil {
		return initError("reactor", err)
	}
	if err = r.Add(fd, api.InterestRead); err != nil {
		_ = r.Close()
		return initError("register listener", err)
	}

	a.lfd = fd
	a.reactor = r
	if in4, ok := bound.(*unix.SockaddrInet4); ok {
		a.port = in4.Port
	}
	a.log.Info("listening",
		zap.String("address", a.cfg.address),
		zap.Int("port", a.port),
		zap.Int("backlog", a.cfg.backlog),
		zap.Int("max_events", a.cfg.maxEvents))
	return nil
}

// Run waits for readiness and accepts connections until Stop is called,
// ctx is cancelled or the reactor fails. It returns nil on a requested
// stop.
func (a *Acceptor) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return api.ErrAcceptorClosed
	}
	if a.reactor == nil {
		a.mu.Unlock()
		return api.ErrNotInitialized
	}
	r, lfd := a.reactor, a.lfd
	a.loop.Add(1)
	a.mu.Unlock()
	defer a.loop.Done()

	stop := context.AfterFunc(ctx, a.Stop)
	defer stop()

	for !a.stopped.Load() {
		n, err := r.Wait(a.ready)
		if err != nil {
			if a.stopped.Load() {
				return nil
			}
			return fmt.Errorf("acceptor wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := a.ready[i]
			if ev.FD == lfd {
				a.acceptAll(r, lfd)
				continue
			}
			a.notify(ev)
		}
	}
	a.log.Debug("accept loop stopped", zap.Int64("connections", a.accepted.Load()))
	return nil
}

// Close stops the loop, waits for Run to return and closes the listener
// and the reactor. Descriptors already handed off are not touched.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.Stop()
	a.loop.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.lfd >= 0 {
		if err := unix.Close(a.lfd); err != nil {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		}
		a.lfd = -1
	}
	if a.reactor != nil {
		if err := a.reactor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// acceptAll drains the listen queue of the non-blocking listener.
func (a *Acceptor) acceptAll(r api.Reactor, lfd int) {
	for {
		nfd, sa, err := unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			}
			a.fail(api.NewError(api.ErrCodeAccept, "accept").Wrap(err))
			time.Sleep(acceptRetryDelay)
			return
		}
		a.handoff(r, nfd, sa)
	}
}

// handoff registers the accepted descriptor and submits its connection
// event. Without a consumer the descriptor is closed here.
func (a *Acceptor) handoff(r api.Reactor, fd int, sa unix.Sockaddr) {
	if a.limiter != nil && !a.limiter.Allow() {
		_ = unix.Close(fd)
		a.metrics.ConnectionShed()
		a.log.Debug("accept rate exceeded, connection shed", zap.String("remote", sockaddrString(sa)))
		return
	}
	if err := r.Add(fd, api.InterestRead|api.InterestEdgeTriggered); err != nil {
		_ = unix.Close(fd)
		a.fail(api.NewError(api.ErrCodeAccept, "register connection").
			WithContext("fd", fd).Wrap(err))
		return
	}

	conn := &api.Conn{
		FD:         fd,
		ID:         diag.RandomString(diag.DefaultIDLength),
		RemoteAddr: sockaddrString(sa),
		AcceptedAt: time.Now(),
	}
	a.accepted.Inc()
	a.metrics.ConnectionAccepted()

	if !a.submit.Submit(a.cfg.connEvent, conn) {
		_ = r.Remove(fd)
		_ = unix.Close(fd)
		a.log.Debug("connection event not queued, closed",
			zap.String("event", a.cfg.connEvent),
			zap.String("remote", conn.RemoteAddr))
		return
	}
	a.log.Debug("connection accepted",
		zap.Int("fd", fd),
		zap.String("id", conn.ID),
		zap.String("remote", conn.RemoteAddr))
}

func (a *Acceptor) notify(ev api.ReadyEvent) {
	if a.submit.Submit(a.cfg.readinessEvent, &api.Readiness{FD: ev.FD, Events: ev.Events}) {
		a.metrics.ReadinessNotified()
	}
}

func initError(step string, err error) error {
	return api.NewError(api.ErrCodeInit, step).Wrap(err)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(v.Addr[:]).String(), strconv.Itoa(v.Port))
	default:
		return ""
	}
}

// CloseConn releases fd and closes it. Callbacks owning a connection use
// it to hang up.
func (a *Acceptor) CloseConn(fd int) error {
	rerr := a.Release(fd)
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close fd=%d: %w", fd, err)
	}
	if rerr != nil && !errors.Is(rerr, unix.ENOENT) &&
		!errors.Is(rerr, api.ErrNotInitialized) && !errors.Is(rerr, api.ErrAcceptorClosed) {
		return rerr
	}
	return nil
}
