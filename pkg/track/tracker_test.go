package track

import (
	"net"
	"testing"
	"time"

	"github.com/irctrakz/sockettrack/pkg/core"
	"github.com/irctrakz/sockettrack/pkg/faults"
	"github.com/irctrakz/sockettrack/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn returns an instrumented pipe end and a goroutine draining the peer.
func pipeConn(t *testing.T) *instrument.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	go func() {
		buf := make([]byte, 512)
		for {
			if _, err := b.Read(buf); err != nil {
				return
			}
		}
	}()
	return instrument.Wrap(a)
}

func TestTracker_RegisterAssignsIDs(t *testing.T) {
	tr := NewTracker(core.TrackerConfig{})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	c1 := pipeConn(t)
	c2 := pipeConn(t)
	tr.Register(c1)
	tr.Register(c2)

	entries := tr.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].ID)
	assert.Equal(t, uint64(2), entries[1].ID)
	assert.Equal(t, fixed, entries[0].Opened)
	assert.Equal(t, "pipe", entries[0].Local)
}

func TestTracker_LiveCounters(t *testing.T) {
	tr := NewTracker(core.TrackerConfig{})
	c := pipeConn(t)
	tr.Register(c)

	_, err := c.Write([]byte("abcdef"))
	require.NoError(t, err)

	e, err := tr.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), e.BytesWritten)
	assert.Equal(t, uint64(0), e.BytesRead)
	assert.Equal(t, core.ConnMetrics{BytesWritten: 6}, tr.Totals())
}

func TestTracker_LookupUnknown(t *testing.T) {
	tr := NewTracker(core.TrackerConfig{})

	_, err := tr.Lookup(42)
	assert.ErrorIs(t, err, ErrUnknownConnection)
	assert.True(t, faults.Is(err, "unknown connection"))
}

func TestTracker_PruneNeverCloses(t *testing.T) {
	tr := NewTracker(core.TrackerConfig{})
	open := pipeConn(t)
	closed := pipeConn(t)
	unconnected := instrument.Open()
	tr.Register(open)
	tr.Register(closed)
	tr.Register(unconnected)

	require.NoError(t, closed.Close())
	assert.Equal(t, 1, tr.Prune())
	assert.Equal(t, 2, tr.Len())
	assert.False(t, open.Closed())
	assert.False(t, unconnected.Closed())

	_, err := tr.Lookup(2)
	assert.ErrorIs(t, err, ErrUnknownConnection)

	entries := tr.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].ID)
	assert.Equal(t, uint64(3), entries[1].ID)
	assert.Empty(t, entries[1].Remote)
}

func TestTracker_MaxEntriesEvictsOldest(t *testing.T) {
	tr := NewTracker(core.TrackerConfig{MaxEntries: 2})
	for i := 0; i < 3; i++ {
		tr.Register(pipeConn(t))
	}

	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, uint64(1), tr.Evicted())
	_, err := tr.Lookup(1)
	assert.ErrorIs(t, err, ErrUnknownConnection)
	_, err = tr.Lookup(3)
	assert.NoError(t, err)
}

func TestTracker_RegistryFunc(t *testing.T) {
	var got []core.CountedConn
	var reg core.Registry = core.RegistryFunc(func(c core.CountedConn) { got = append(got, c) })

	c := pipeConn(t)
	reg.Register(c)
	require.Len(t, got, 1)
	assert.Same(t, c, got[0])
}
