package transportcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateHolder_CompareAndSwap(t *testing.T) {
	t.Parallel()

	var h StateHolder
	assert.Equal(t, StateDisconnected, h.Load())

	ok := h.CompareAndSwap(StateDisconnected, StateConnecting)
	assert.True(t, ok)
	assert.Equal(t, StateConnecting, h.Load())

	ok = h.CompareAndSwap(StateDisconnected, StateConnected)
	assert.False(t, ok)
	assert.Equal(t, StateConnecting, h.Load())
}

func TestMetrics_SnapshotIsConsistent(t *testing.T) {
	t.Parallel()

	var m Metrics
	m.RecordSent(10)
	m.RecordSent(5)
	m.RecordReceived(20)
	m.RecordError()
	m.RecordReconnect()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.MessagesSent)
	assert.Equal(t, int64(15), snap.BytesSent)
	assert.Equal(t, int64(1), snap.MessagesReceived)
	assert.Equal(t, int64(20), snap.BytesReceived)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(1), snap.Reconnects)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
}
