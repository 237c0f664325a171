// Package linewire implements the shared newline-delimited JSON framing
// used by the stdio, TCP, and Unix domain socket transports (spec §6): each
// message is one JSON value terminated by '\n', capped at maxLineBytes.
package linewire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// maxLineBytes bounds a single framed message per spec §6.
const maxLineBytes = 10 * 1024 * 1024

// Transport frames messages as newline-terminated JSON over an
// io.ReadWriteCloser. It implements transportcore.Transport.
type Transport struct {
	transportcore.StateHolder
	metrics transportcore.Metrics

	conn   io.ReadWriteCloser
	dialer func(ctx context.Context) (io.ReadWriteCloser, error)

	writeMu sync.Mutex
	reader  *bufio.Reader

	bidirectional bool
}

// New builds a line-framed Transport. dialer is invoked by Connect to
// obtain the underlying stream; for stdio this simply wraps os.Stdin and
// os.Stdout, for TCP/Unix it dials the configured address.
func New(dialer func(ctx context.Context) (io.ReadWriteCloser, error), bidirectional bool) *Transport {
	t := &Transport{dialer: dialer, bidirectional: bidirectional}
	t.Store(transportcore.StateDisconnected)
	return t
}

func (t *Transport) Connect(ctx context.Context) error {
	if t.Load() == transportcore.StateConnected {
		return nil
	}
	t.Store(transportcore.StateConnecting)
	conn, err := t.dialer(ctx)
	if err != nil {
		t.Store(transportcore.StateFailed)
		return internalerrors.NewKind("linewire", "Connect", internalerrors.KindTransportClosed, err)
	}
	t.conn = conn
	t.reader = bufio.NewReaderSize(conn, 64*1024)
	t.Store(transportcore.StateConnected)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	if t.conn == nil {
		t.Store(transportcore.StateDisconnected)
		return nil
	}
	err := t.conn.Close()
	t.Store(transportcore.StateDisconnected)
	if err != nil {
		return internalerrors.NewKind("linewire", "Disconnect", internalerrors.KindInternal, err)
	}
	return nil
}

func (t *Transport) Send(ctx context.Context, data []byte) error {
	if t.Load() != transportcore.StateConnected {
		return internalerrors.NewKind("linewire", "Send", internalerrors.KindTransportClosed,
			fmt.Errorf("transport not connected"))
	}
	if len(data) > maxLineBytes {
		return internalerrors.NewKind("linewire", "Send", internalerrors.KindPayloadTooLarge,
			fmt.Errorf("message of %d bytes exceeds limit of %d", len(data), maxLineBytes))
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.conn.Write(data); err != nil {
		t.metrics.RecordError()
		return internalerrors.NewKind("linewire", "Send", internalerrors.KindTransportClosed, err)
	}
	if _, err := t.conn.Write([]byte("\n")); err != nil {
		t.metrics.RecordError()
		return internalerrors.NewKind("linewire", "Send", internalerrors.KindTransportClosed, err)
	}
	t.metrics.RecordSent(len(data))
	return nil
}

func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	if t.Load() != transportcore.StateConnected {
		return nil, internalerrors.NewKind("linewire", "Receive", internalerrors.KindTransportClosed,
			fmt.Errorf("transport not connected"))
	}

	type result struct {
		line []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := t.reader.ReadBytes('\n')
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, internalerrors.NewKind("linewire", "Receive", internalerrors.KindCancelled, ctx.Err())
	case res := <-done:
		if res.err != nil {
			t.metrics.RecordError()
			return nil, internalerrors.NewKind("linewire", "Receive", internalerrors.KindTransportClosed, res.err)
		}
		if len(res.line) > maxLineBytes {
			return nil, internalerrors.NewKind("linewire", "Receive", internalerrors.KindPayloadTooLarge,
				fmt.Errorf("message of %d bytes exceeds limit of %d", len(res.line), maxLineBytes))
		}
		trimmed := res.line
		for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
			trimmed = trimmed[:len(trimmed)-1]
		}
		t.metrics.RecordReceived(len(trimmed))
		return trimmed, nil
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
		Bidirectional:   t.bidirectional,
		Streaming:       false,
		MaxMessageBytes: maxLineBytes,
	}
}
