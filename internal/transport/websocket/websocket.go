// Package websocket implements the MCP WebSocket transport: one JSON
// message per WebSocket text frame over a connection accepted from an
// http.Server (spec §6). Unlike the line-framed transports, message
// boundaries come from the WebSocket protocol itself, not a delimiter.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	gorilla "github.com/gorilla/websocket"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// maxMessageBytes bounds a single frame's payload per spec §6.
const maxMessageBytes = 10 * 1024 * 1024

// upgrader is shared across accepted connections; origin checking for the
// MCP endpoint itself happens in internal/security, not here, so this
// accepts any origin the security chain already let through.
var upgrader = gorilla.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Transport wraps one accepted *gorilla.Conn as a transportcore.Transport.
// It is constructed per-connection by Upgrade, not dialed, since WebSocket
// MCP connections are always server-accepted in this deployment.
type Transport struct {
	transportcore.StateHolder
	metrics transportcore.Metrics

	conn *gorilla.Conn

	writeMu sync.Mutex
}

// Upgrade accepts an incoming HTTP request as a WebSocket connection and
// returns a ready-to-use Transport. The caller still must call Connect
// before Send/Receive, matching the rest of the transportcore contract.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, internalerrors.NewKind("websocket", "Upgrade", internalerrors.KindTransportClosed, err)
	}
	conn.SetReadLimit(maxMessageBytes)
	t := &Transport{conn: conn}
	t.Store(transportcore.StateDisconnected)
	return t, nil
}

func (t *Transport) Connect(ctx context.Context) error {
	t.Store(transportcore.StateConnected)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	err := t.conn.Close()
	t.Store(transportcore.StateDisconnected)
	if err != nil {
		return internalerrors.NewKind("websocket", "Disconnect", internalerrors.KindInternal, err)
	}
	return nil
}

func (t *Transport) Send(ctx context.Context, data []byte) error {
	if t.Load() != transportcore.StateConnected {
		return internalerrors.NewKind("websocket", "Send", internalerrors.KindTransportClosed,
			fmt.Errorf("transport not connected"))
	}
	if len(data) > maxMessageBytes {
		return internalerrors.NewKind("websocket", "Send", internalerrors.KindPayloadTooLarge,
			fmt.Errorf("message of %d bytes exceeds limit of %d", len(data), maxMessageBytes))
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		t.metrics.RecordError()
		return internalerrors.NewKind("websocket", "Send", internalerrors.KindTransportClosed, err)
	}
	t.metrics.RecordSent(len(data))
	return nil
}

func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	if t.Load() != transportcore.StateConnected {
		return nil, internalerrors.NewKind("websocket", "Receive", internalerrors.KindTransportClosed,
			fmt.Errorf("transport not connected"))
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		_, data, err := t.conn.ReadMessage()
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, internalerrors.NewKind("websocket", "Receive", internalerrors.KindCancelled, ctx.Err())
	case res := <-done:
		if res.err != nil {
			t.metrics.RecordError()
			return nil, internalerrors.NewKind("websocket", "Receive", internalerrors.KindTransportClosed, res.err)
		}
		t.metrics.RecordReceived(len(res.data))
		return res.data, nil
	}
}

func (t *Transport) State() transportcore.State {
	return t.Load()
}

func (t *Transport) Metrics() transportcore.MetricsSnapshot {
	return t.metrics.Snapshot()
}

func (t *Transport) Capabilities() transportcore.Capabilities {
	return transportcore.Capabilities{
		Bidirectional:   true,
		Streaming:       true,
		MaxMessageBytes: maxMessageBytes,
	}
}
