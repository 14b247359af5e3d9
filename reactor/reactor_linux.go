//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor with an eventfd(2) wake-up descriptor.

package reactor

import (
	"encoding/binary"
	"fmt"

	"github.com/nemoofnemo/LinuxServer/api"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// Ensure compile-time interface compliance.
var _ api.Reactor = (*epollReactor)(nil)

// epollReactor is an epoll-based readiness multiplexer.
type epollReactor struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent // reused by Wait; Wait is single-goroutine
	closed atomic.Bool
}

// New creates an epoll instance able to report up to capacity ready
// descriptors per Wait, plus its wake-up eventfd.
func New(capacity int) (api.Reactor, error) {
	capacity = normalizeCapacity(capacity)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}

	return &epollReactor{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, capacity),
	}, nil
}

// Add registers fd for the given interest flags.
func (r *epollReactor) Add(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Modify replaces the interest flags of fd.
func (r *epollReactor) Modify(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Remove deletes fd from the interest set.
func (r *epollReactor) Remove(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks without timeout until descriptors are ready or Wake is
// called. Only the entries reported by epoll_wait are read; the wake-up
// descriptor is drained and left out of buf. EINTR is retried.
func (r *epollReactor) Wait(buf []api.ReadyEvent) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("epoll wait: empty event buffer: %w", api.ErrInvalidArgument)
	}
	if len(buf) > len(r.raw) {
		r.raw = make([]unix.EpollEvent, len(buf))
	}
	raw := r.raw[:len(buf)]

	var n int
	for {
		var err error
		n, err = unix.EpollWait(r.epfd, raw, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll wait: %w", err)
		}
		break
	}

	k := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == r.wakefd {
			r.drain()
			continue
		}
		buf[k] = api.ReadyEvent{FD: fd, Events: fromEpoll(raw[i].Events)}
		k++
	}
	return k, nil
}

// Wake makes a blocked or the next Wait return.
func (r *epollReactor) Wake() error {
	if r.closed.Load() {
		return api.ErrReactorClosed
	}
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(r.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the epoll and eventfd descriptors.
func (r *epollReactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	werr := unix.Close(r.wakefd)
	if err := unix.Close(r.epfd); err != nil {
		return fmt.Errorf("epoll close: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("eventfd close: %w", werr)
	}
	return nil
}

func (r *epollReactor) drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func toEpoll(events uint32) uint32 {
	var e uint32
	if events&api.InterestRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&api.InterestWrite != 0 {
		e |= unix.EPOLLOUT
	}
	if events&api.InterestEdgeTriggered != 0 {
		e |= unix.EPOLLET
	}
	return e
}

func fromEpoll(e uint32) uint32 {
	var events uint32
	if e&unix.EPOLLIN != 0 {
		events |= api.InterestRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= api.InterestWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= api.ReadyError
	}
	if e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		events |= api.ReadyHangup
	}
	return events
}
