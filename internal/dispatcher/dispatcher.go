// Package dispatcher implements the server-to-client request path (spec
// §4.5): elicitation, ping, sampling, and roots listing, correlated by
// UUID request IDs against a one-shot completion slot per in-flight call.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
)

// defaultTimeout bounds how long a server-initiated request waits for the
// client's response before failing with a Timeout error.
const defaultTimeout = 60 * time.Second

// Sender writes one already-framed JSON-RPC request to the client side of
// the connection. The concrete transport supplies this.
type Sender func(ctx context.Context, req *mcp.Request) error

// ClientCapabilities gates which server-initiated methods are permitted;
// calling one the client did not declare support for fails fast with a
// HandlerError rather than hanging until timeout.
type ClientCapabilities struct {
	Elicitation bool
	Sampling    bool
	Roots       bool
}

// pendingCall is the one-shot completion slot a correlated response
// resolves.
type pendingCall struct {
	result chan json.RawMessage
	errs   chan *mcp.Error
}

// Dispatcher correlates server-initiated requests with their client
// responses by request ID.
type Dispatcher struct {
	send Sender
	caps ClientCapabilities

	mu      sync.Mutex
	pending map[string]*pendingCall

	timeout time.Duration
}

// New builds a Dispatcher that writes outbound requests via send and gates
// calls against caps.
func New(send Sender, caps ClientCapabilities) *Dispatcher {
	return &Dispatcher{
		send:    send,
		caps:    caps,
		pending: make(map[string]*pendingCall),
		timeout: defaultTimeout,
	}
}

// Resolve is called by the transport's receive loop when a response
// carrying a previously-dispatched request ID arrives. It is a no-op if no
// pending call matches id (e.g. a late or duplicate response).
func (d *Dispatcher) Resolve(id string, result json.RawMessage, rpcErr *mcp.Error) {
	d.mu.Lock()
	call, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	if rpcErr != nil {
		call.errs <- rpcErr
		return
	}
	call.result <- result
}

func (d *Dispatcher) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, internalerrors.NewKind("dispatcher", "call", internalerrors.KindInvalidParams, err)
	}

	call := &pendingCall{result: make(chan json.RawMessage, 1), errs: make(chan *mcp.Error, 1)}
	d.mu.Lock()
	d.pending[id] = call
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
	}()

	req := &mcp.Request{JSONRPC: mcp.JSONRPCVersion, ID: id, Method: method, Params: raw}
	if err := d.send(ctx, req); err != nil {
		return nil, internalerrors.NewKind("dispatcher", "call", internalerrors.KindTransportClosed, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	select {
	case <-timeoutCtx.Done():
		return nil, internalerrors.NewKind("dispatcher", "call", internalerrors.KindTimeout, timeoutCtx.Err())
	case rpcErr := <-call.errs:
		return nil, internalerrors.NewKind("dispatcher", "call", internalerrors.KindHandlerError, rpcErr)
	case result := <-call.result:
		return result, nil
	}
}

// SupportsBidirectional reports whether the client declared any
// server-initiated capability at all.
func (d *Dispatcher) SupportsBidirectional() bool {
	return d.caps.Elicitation || d.caps.Sampling || d.caps.Roots
}

// SetClientCapabilities replaces the capability gate, called once the
// client's initialize params are known.
func (d *Dispatcher) SetClientCapabilities(caps ClientCapabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caps = caps
}

type contextKey struct{}

// WithContext attaches d to ctx so a tool or resource handler invoked deeper
// in the call stack can reach back out to the client (e.g. to elicit input)
// without the router threading a Dispatcher through every method signature.
func WithContext(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// FromContext retrieves the Dispatcher attached by WithContext, if any.
func FromContext(ctx context.Context) (*Dispatcher, bool) {
	d, ok := ctx.Value(contextKey{}).(*Dispatcher)
	return d, ok
}

// SendPing issues a bare ping and waits for the client's pong.
func (d *Dispatcher) SendPing(ctx context.Context) error {
	_, err := d.call(ctx, "ping", map[string]any{})
	return err
}

// SendElicitation asks the client to collect structured input from the
// user, per spec §4.5's elicitation/create method.
func (d *Dispatcher) SendElicitation(ctx context.Context, message string, schema map[string]any) (map[string]any, error) {
	if !d.caps.Elicitation {
		return nil, internalerrors.NewKind("dispatcher", "SendElicitation", internalerrors.KindHandlerError,
			fmt.Errorf("elicitation is not supported by client"))
	}
	raw, err := d.call(ctx, "elicitation/create", map[string]any{
		"message":         message,
		"requestedSchema": schema,
	})
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, internalerrors.NewKind("dispatcher", "SendElicitation", internalerrors.KindParse, err)
	}
	return result, nil
}

// SendCreateMessage asks the client to sample from its LLM on the server's
// behalf, per spec §4.5's sampling/createMessage method.
func (d *Dispatcher) SendCreateMessage(ctx context.Context, params map[string]any) (map[string]any, error) {
	if !d.caps.Sampling {
		return nil, internalerrors.NewKind("dispatcher", "SendCreateMessage", internalerrors.KindHandlerError,
			fmt.Errorf("sampling is not supported by client"))
	}
	raw, err := d.call(ctx, "sampling/createMessage", params)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, internalerrors.NewKind("dispatcher", "SendCreateMessage", internalerrors.KindParse, err)
	}
	return result, nil
}

// SendListRoots asks the client for its configured workspace roots, per
// spec §4.5's roots/list method.
func (d *Dispatcher) SendListRoots(ctx context.Context) ([]string, error) {
	if !d.caps.Roots {
		return nil, internalerrors.NewKind("dispatcher", "SendListRoots", internalerrors.KindHandlerError,
			fmt.Errorf("roots is not supported by client"))
	}
	raw, err := d.call(ctx, "roots/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Roots []struct {
			URI string `json:"uri"`
		} `json:"roots"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, internalerrors.NewKind("dispatcher", "SendListRoots", internalerrors.KindParse, err)
	}
	uris := make([]string, len(result.Roots))
	for i, r := range result.Roots {
		uris[i] = r.URI
	}
	return uris, nil
}
