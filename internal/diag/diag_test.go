package diag

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_WriteAndPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	sink, err := OpenLogSink(path, "w+")
	require.NoError(t, err)
	sink.now = func() time.Time { return time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC) }

	_, err = sink.Write("started on port %d\n", 6001)
	require.NoError(t, err)
	_, err = sink.Print("raw %s\n", "line")
	require.NoError(t, err)
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2024/03/09 07:05:01] started on port 6001\nraw line\n", string(data))
}

func TestLogSink_AppendMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	sink, err := OpenLogSink(path, "a")
	require.NoError(t, err)
	_, err = sink.Print("new\n")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestLogSink_InvalidMode(t *testing.T) {
	_, err := OpenLogSink(filepath.Join(t.TempDir(), "x.log"), "r")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestLogSink_ConcurrentWritesDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	sink, err := OpenLogSink(path, "w")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, _ = sink.Print("g%d-i%03d-%s\n", g, i, strings.Repeat("x", 64))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 800)
	re := regexp.MustCompile(`^g\d-i\d{3}-x{64}$`)
	for _, l := range lines {
		assert.Regexp(t, re, l)
	}
}

func TestLogSink_StructuredLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zap.log")
	sink, err := OpenLogSink(path, "w")
	require.NoError(t, err)

	logger, err := sink.Logger("WARN")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("visible")
	require.NoError(t, logger.Sync())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")

	_, err = sink.Logger("loud")
	assert.Error(t, err)
}

func TestLogSink_Console(t *testing.T) {
	sink, err := OpenLogSink(ConsoleTarget, "")
	require.NoError(t, err)
	assert.Equal(t, ConsoleTarget, sink.Target())
	assert.NoError(t, sink.Flush())
	assert.NoError(t, sink.Close())
}

func TestTimer(t *testing.T) {
	var tm Timer
	tm.Start()
	time.Sleep(15 * time.Millisecond)
	ms := tm.Stop()
	us := tm.StopMicro()
	assert.GreaterOrEqual(t, ms, int64(15))
	assert.GreaterOrEqual(t, us, ms*1000)
	assert.Equal(t, int64(0), tm.StopSeconds())
}

func TestRandomString(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-Za-z]+$`)
	s := RandomString(32)
	assert.Len(t, s, 32)
	assert.Regexp(t, re, s)

	assert.Len(t, RandomString(0), DefaultIDLength)
	assert.NotEqual(t, RandomString(24), RandomString(24))
}
