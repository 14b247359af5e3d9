package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// recorder collects payloads in invocation order.
type recorder struct {
	mu   sync.Mutex
	seen []any
}

func (r *recorder) Run(payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, payload)
}

func (r *recorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.seen))
	copy(out, r.seen)
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func newDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func strategies() map[string]Option {
	return map[string]Option{
		"notify": WithStrategy(StrategyNotify),
		"poll":   WithStrategy(StrategyPoll),
	}
}

func TestNew_Defaults(t *testing.T) {
	d := newDispatcher(t)
	assert.Equal(t, DefaultWorkers, d.Workers())
	assert.Equal(t, api.StatusRunning, d.Status())
	assert.Equal(t, 0, d.Pending())
}

func TestNew_ClampsWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		d := newDispatcher(t, WithWorkers(n))
		assert.Equal(t, 1, d.Workers())
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	_, err := New(WithPollInterval(-time.Second))
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, api.ErrCodeInvalidArgument, api.CodeOf(err))

	_, err = New(WithStrategy(Strategy(42)))
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestFIFO_SingleWorker(t *testing.T) {
	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			d := newDispatcher(t, WithWorkers(1), strategy, WithPollInterval(5*time.Millisecond))
			rec := &recorder{}
			require.NoError(t, d.AddCallback("e", rec))

			for i := 1; i <= 100; i++ {
				require.True(t, d.Submit("e", i))
			}
			require.Eventually(t, func() bool { return rec.len() == 100 }, 5*time.Second, time.Millisecond)

			seen := rec.snapshot()
			for i, v := range seen {
				assert.Equal(t, i+1, v, "event %d out of order", i)
			}
		})
	}
}

func TestAtMostOnce_ManyWorkers(t *testing.T) {
	d := newDispatcher(t, WithWorkers(8))

	const producers, perProducer = 8, 500
	counts := make([]atomic.Int32, producers*perProducer)
	require.NoError(t, d.AddCallbackFunc("inc", func(p any) {
		counts[p.(int)].Inc()
	}))

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.True(t, d.Submit("inc", p*perProducer+i))
			}
		}(p)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return d.Pending() == 0 }, 5*time.Second, time.Millisecond)
	require.NoError(t, d.Close())
	for i := range counts {
		require.Equal(t, int32(1), counts[i].Load(), "payload %d", i)
	}
}

func TestSubmit_UnregisteredIsDroppedSilently(t *testing.T) {
	d := newDispatcher(t, WithWorkers(2))
	rec := &recorder{}
	require.NoError(t, d.AddCallback("known", rec))

	assert.False(t, d.Submit("x", "payload"))
	assert.Equal(t, 0, d.Pending())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.len())
}

func TestRemoveAfterSubmit_EventIsNeverInvoked(t *testing.T) {
	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			d := newDispatcher(t, WithWorkers(2), strategy, WithPollInterval(5*time.Millisecond))
			rec := &recorder{}
			require.NoError(t, d.AddCallback("x", rec))

			require.NoError(t, d.SetStatus(api.StatusSuspended))
			require.True(t, d.Submit("x", 1))
			require.NoError(t, d.RemoveCallback("x"))
			require.NoError(t, d.SetStatus(api.StatusRunning))

			require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, time.Millisecond)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, 0, rec.len())
		})
	}
}

func TestAddCallback_FirstRegistrationWins(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))
	h1, h2 := &recorder{}, &recorder{}
	require.NoError(t, d.AddCallback("x", h1))
	require.NoError(t, d.AddCallback("x", h2))

	require.True(t, d.Submit("x", "p"))
	require.Eventually(t, func() bool { return h1.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, h2.len())
}

func TestCallbackRegistry_InvalidArguments(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))

	assert.ErrorIs(t, d.AddCallback("", &recorder{}), api.ErrInvalidArgument)
	assert.ErrorIs(t, d.AddCallback("x", nil), api.ErrInvalidArgument)
	assert.ErrorIs(t, d.AddCallbackFunc("x", nil), api.ErrInvalidArgument)
	assert.ErrorIs(t, d.RemoveCallback(""), api.ErrInvalidArgument)

	// unknown name is a no-op
	assert.NoError(t, d.RemoveCallback("missing"))
}

func TestCallbacks_Listing(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))
	require.NoError(t, d.AddCallback("b", &recorder{}))
	require.NoError(t, d.AddCallback("a", &recorder{}))

	assert.Equal(t, []string{"a", "b"}, d.Callbacks())
	assert.True(t, d.HasCallback("a"))
	require.NoError(t, d.RemoveCallback("a"))
	assert.False(t, d.HasCallback("a"))
}

func TestSetStatus(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))

	assert.ErrorIs(t, d.SetStatus(api.StatusHalted), api.ErrInvalidStatus)
	assert.ErrorIs(t, d.SetStatus(api.Status(9)), api.ErrInvalidStatus)
	assert.Equal(t, api.StatusRunning, d.Status())

	require.NoError(t, d.SetStatus(api.StatusSuspended))
	assert.Equal(t, api.StatusSuspended, d.Status())

	require.NoError(t, d.Close())
	assert.Equal(t, api.StatusHalted, d.Status())
	assert.ErrorIs(t, d.SetStatus(api.StatusRunning), api.ErrHalted)
}

func TestSuspend_HoldsEventsUntilResume(t *testing.T) {
	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			d := newDispatcher(t, WithWorkers(3), strategy, WithPollInterval(5*time.Millisecond))
			rec := &recorder{}
			require.NoError(t, d.AddCallback("e", rec))
			require.NoError(t, d.SetStatus(api.StatusSuspended))

			for i := 0; i < 10; i++ {
				require.True(t, d.Submit("e", i))
			}
			time.Sleep(30 * time.Millisecond)
			assert.Equal(t, 0, rec.len())
			assert.Equal(t, 10, d.Pending())

			require.NoError(t, d.SetStatus(api.StatusRunning))
			require.Eventually(t, func() bool { return rec.len() == 10 }, time.Second, time.Millisecond)
		})
	}
}

func TestCallbackPanic_WorkerSurvives(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))
	rec := &recorder{}
	require.NoError(t, d.AddCallbackFunc("boom", func(any) { panic("boom") }))
	require.NoError(t, d.AddCallback("ok", rec))

	require.True(t, d.Submit("boom", nil))
	require.True(t, d.Submit("ok", 1))
	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
}

func TestShutdown_DiscardsQueuedAndRejectsLateSubmits(t *testing.T) {
	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			d := newDispatcher(t, WithWorkers(4), strategy, WithPollInterval(5*time.Millisecond))
			rec := &recorder{}
			require.NoError(t, d.AddCallback("e", rec))
			require.NoError(t, d.SetStatus(api.StatusSuspended))
			for i := 0; i < 5; i++ {
				require.True(t, d.Submit("e", i))
			}

			done := make(chan error, 1)
			go func() { done <- d.Close() }()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("workers did not join")
			}

			assert.Equal(t, 0, d.Pending())
			assert.False(t, d.Submit("e", 99))
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, 0, rec.len())

			// idempotent
			assert.NoError(t, d.Close())
		})
	}
}

func TestShutdown_WaitsForInFlightCallback(t *testing.T) {
	d := newDispatcher(t, WithWorkers(1))
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.AddCallbackFunc("slow", func(any) {
		close(started)
		<-release
	}))
	require.True(t, d.Submit("slow", nil))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	assert.NoError(t, d.Shutdown(ctx2))
}

// depthMetrics keeps the last reported queue depth.
type depthMetrics struct {
	control.NoopDispatcherMetrics
	depth atomic.Int64
}

func (m *depthMetrics) SetQueueDepth(n int) { m.depth.Store(int64(n)) }

func TestQueueDepth_TracksConcurrentSubmits(t *testing.T) {
	m := &depthMetrics{}
	d := newDispatcher(t, WithWorkers(2), WithMetrics(m))
	rec := &recorder{}
	require.NoError(t, d.AddCallback("e", rec))
	require.NoError(t, d.SetStatus(api.StatusSuspended))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				d.Submit("e", i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, d.Pending())
	assert.Equal(t, int64(200), m.depth.Load())

	require.NoError(t, d.SetStatus(api.StatusRunning))
	require.Eventually(t, func() bool { return rec.len() == 200 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, m.depth.Load())
}
