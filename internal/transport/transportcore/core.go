package transportcore

import (
	"context"
	"sync/atomic"
)

// State is a transport's connection lifecycle state. Disconnected is not
// terminal: calling Connect again after Disconnect or a failure starts a
// fresh attempt through Connecting.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Capabilities describes what a Transport implementation supports, so
// callers (the dispatcher, the resilience wrapper) can gate behavior
// without type-asserting the concrete transport.
type Capabilities struct {
	// Bidirectional indicates the transport can carry server-initiated
	// requests back to the client (e.g. elicitation, sampling, roots).
	Bidirectional bool

	// Streaming indicates the transport delivers messages incrementally
	// rather than as discrete request/response pairs.
	Streaming bool

	// MaxMessageBytes is the largest single message the transport will
	// frame, 0 meaning no transport-imposed limit beyond the protocol
	// default (10 MiB per spec §6).
	MaxMessageBytes int64
}

// Metrics holds atomic counters a Transport maintains across its lifetime.
// All fields are safe for concurrent access via the Snapshot method; callers
// must not read the fields directly.
type Metrics struct {
	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64
	errors           int64
	reconnects       int64
}

// MetricsSnapshot is a point-in-time copy of Metrics' counters.
type MetricsSnapshot struct {
	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	Errors           int64
	Reconnects       int64
}

func (m *Metrics) RecordSent(bytes int) {
	atomic.AddInt64(&m.messagesSent, 1)
	atomic.AddInt64(&m.bytesSent, int64(bytes))
}

func (m *Metrics) RecordReceived(bytes int) {
	atomic.AddInt64(&m.messagesReceived, 1)
	atomic.AddInt64(&m.bytesReceived, int64(bytes))
}

func (m *Metrics) RecordError() {
	atomic.AddInt64(&m.errors, 1)
}

func (m *Metrics) RecordReconnect() {
	atomic.AddInt64(&m.reconnects, 1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		MessagesSent:     atomic.LoadInt64(&m.messagesSent),
		MessagesReceived: atomic.LoadInt64(&m.messagesReceived),
		BytesSent:        atomic.LoadInt64(&m.bytesSent),
		BytesReceived:    atomic.LoadInt64(&m.bytesReceived),
		Errors:           atomic.LoadInt64(&m.errors),
		Reconnects:       atomic.LoadInt64(&m.reconnects),
	}
}

// Transport is the contract every concrete wire binding (stdio, TCP, Unix
// socket, HTTP, WebSocket) and the resilience wrapper around them
// implements (spec §6).
type Transport interface {
	// Connect establishes the underlying connection. Calling Connect on an
	// already-connected Transport is a no-op.
	Connect(ctx context.Context) error

	// Disconnect tears down the connection. Safe to call multiple times.
	Disconnect(ctx context.Context) error

	// Send writes one framed message. Send on a disconnected Transport
	// returns a TransportClosed error.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until one framed message arrives, ctx is done, or the
	// transport is disconnected.
	Receive(ctx context.Context) ([]byte, error)

	// State reports the current lifecycle state.
	State() State

	// Metrics reports cumulative counters for this transport instance.
	Metrics() MetricsSnapshot

	// Capabilities reports what this transport supports.
	Capabilities() Capabilities
}

// StateHolder is an atomic State box embeddable by Transport implementations
// so they share one correct transition primitive instead of reimplementing
// compare-and-swap bookkeeping.
type StateHolder struct {
	state int32
}

func (h *StateHolder) Load() State {
	return State(atomic.LoadInt32(&h.state))
}

func (h *StateHolder) Store(s State) {
	atomic.StoreInt32(&h.state, int32(s))
}

// CompareAndSwap atomically transitions from old to new, reporting whether
// the transition happened.
func (h *StateHolder) CompareAndSwap(old, new State) bool {
	return atomic.CompareAndSwapInt32(&h.state, int32(old), int32(new))
}
