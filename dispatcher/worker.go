// File: dispatcher/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker loop: take the front event, look its callback up under the shared
// lock, invoke it synchronously. Panics are recovered to keep the worker
// alive.

package dispatcher

import (
	"sync"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/internal/diag"
	"go.uber.org/zap"
)

func (d *Dispatcher) work(id int, ready *sync.WaitGroup) {
	defer d.wg.Done()
	ready.Done()

	take := d.waitNotify
	if d.cfg.strategy == StrategyPoll {
		take = d.waitPoll
	}
	for {
		ev, ok := take()
		if !ok {
			return
		}
		d.dispatch(id, ev)
	}
}

// waitNotify blocks on the queue condition until an event is available
// while running. It returns false once halted.
func (d *Dispatcher) waitNotify() (api.Event, bool) {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	for {
		switch d.Status() {
		case api.StatusHalted:
			return api.Event{}, false
		case api.StatusRunning:
			if d.queue.Length() > 0 {
				return d.pop(), true
			}
		}
		d.cond.Wait()
	}
}

// waitPoll checks the queue and sleeps one poll interval whenever it is
// empty or the dispatcher is suspended. It returns false once halted.
func (d *Dispatcher) waitPoll() (api.Event, bool) {
	for {
		switch d.Status() {
		case api.StatusHalted:
			return api.Event{}, false
		case api.StatusRunning:
			var (
				ev api.Event
				ok bool
			)
			d.qmu.Do(func() {
				if d.Status() == api.StatusRunning && d.queue.Length() > 0 {
					ev, ok = d.pop(), true
				}
			})
			if ok {
				return ev, true
			}
		}
		if !d.sleep() {
			return api.Event{}, false
		}
	}
}

// pop removes the front event. qmu must be held and the queue non-empty.
func (d *Dispatcher) pop() api.Event {
	ev := d.queue.Remove().(api.Event)
	d.metrics.SetQueueDepth(d.queue.Length())
	return ev
}

// sleep waits one poll interval; it returns false if the dispatcher halts
// in the meantime.
func (d *Dispatcher) sleep() bool {
	t := time.NewTimer(d.cfg.pollInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-d.haltCh:
		return false
	}
}

func (d *Dispatcher) dispatch(worker int, ev api.Event) {
	cb, ok := d.lookup(ev.Name)
	if !ok {
		d.metrics.EventOrphaned(ev.Name)
		return
	}
	var timer diag.Timer
	timer.Start()
	defer func() {
		d.metrics.CallbackDuration(ev.Name, timer.Elapsed())
		if r := recover(); r != nil {
			d.metrics.CallbackPanicked(ev.Name)
			d.log.Error("callback panicked",
				zap.String("event", ev.Name),
				zap.Int("worker", worker),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	cb.Run(ev.Payload)
	d.metrics.EventDispatched(ev.Name)
}
