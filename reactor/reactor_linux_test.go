//go:build linux
// +build linux

package reactor

import (
	"testing"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	return p[0], p[1]
}

func newReactor(t *testing.T, capacity int) api.Reactor {
	t.Helper()
	r, err := New(capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestWait_ReturnsExactReadyCount(t *testing.T) {
	r := newReactor(t, 16)
	var readers []int
	for i := 0; i < 3; i++ {
		rd, wr := newPipe(t)
		require.NoError(t, r.Add(rd, Read))
		_, err := unix.Write(wr, []byte("x"))
		require.NoError(t, err)
		readers = append(readers, rd)
	}

	buf := make([]api.ReadyEvent, 16)
	n, err := r.Wait(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	got := make([]int, 0, n)
	for _, ev := range buf[:n] {
		assert.NotZero(t, ev.Events&api.InterestRead)
		got = append(got, ev.FD)
	}
	assert.ElementsMatch(t, readers, got)
}

func TestWait_BoundedByBuffer(t *testing.T) {
	r := newReactor(t, 4)
	for i := 0; i < 3; i++ {
		rd, wr := newPipe(t)
		require.NoError(t, r.Add(rd, Read))
		_, err := unix.Write(wr, []byte("x"))
		require.NoError(t, err)
	}

	buf := make([]api.ReadyEvent, 2)
	n, err := r.Wait(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWake_UnblocksWait(t *testing.T) {
	r := newReactor(t, 4)
	rd, _ := newPipe(t)
	require.NoError(t, r.Add(rd, Read))

	result := make(chan int, 1)
	go func() {
		n, err := r.Wait(make([]api.ReadyEvent, 4))
		assert.NoError(t, err)
		result <- n
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Wake())
	select {
	case n := <-result:
		assert.Equal(t, 0, n, "wake-up descriptor must not be reported")
	case <-time.After(2 * time.Second):
		t.Fatal("Wait was not woken")
	}
}

func TestRemove_StopsNotifications(t *testing.T) {
	r := newReactor(t, 4)
	rd, wr := newPipe(t)
	require.NoError(t, r.Add(rd, Read|EdgeTriggered))
	require.NoError(t, r.Modify(rd, Read))
	require.NoError(t, r.Remove(rd))

	_, err := unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, r.Wake())

	n, err := r.Wait(make([]api.ReadyEvent, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClose_Idempotent(t *testing.T) {
	r, err := New(0)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Wake(), api.ErrReactorClosed)
}
