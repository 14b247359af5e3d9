package fake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitter_RecordsAndRejects(t *testing.T) {
	s := NewSubmitter("nope")
	require.True(t, s.Submit("a", 1))
	require.False(t, s.Submit("nope", 2))
	require.True(t, s.Submit("a", 3))

	assert.Len(t, s.Events(), 2)
	assert.Equal(t, []any{1, 3}, s.Named("a"))
	assert.Empty(t, s.Named("nope"))
	assert.Equal(t, 1, s.Rejected("nope"))
	assert.Zero(t, s.Rejected("a"))

	ev := <-s.C()
	assert.Equal(t, "a", ev.Name)
}

func TestLogSink(t *testing.T) {
	var l LogSink
	n, err := l.Write("x=%d", 1)
	require.NoError(t, err)
	assert.Equal(t, len("[ts] x=1"), n)
	_, _ = l.Print("raw")
	require.NoError(t, l.Flush())

	assert.Equal(t, []string{"[ts] x=1", "raw"}, l.Lines())
	assert.Equal(t, "[ts] x=1raw", l.String())
	assert.Equal(t, 1, l.Flushes())
}
