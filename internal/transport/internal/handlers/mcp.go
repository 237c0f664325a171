package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/Epistates/turbomcp-sub009/internal/codec"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
	pkgoauth "github.com/Epistates/turbomcp-sub009/pkg/oauth"
)

// batchHandler is implemented by routers that support JSON-RPC batch
// requests (spec §4.4); handlers that don't implement it reject batches
// with an internal error instead of panicking on a failed assertion.
type batchHandler interface {
	HandleBatch(ctx context.Context, reqs []*mcp.Request) ([]*mcp.Response, error)
}

// mcpHandler handles MCP protocol requests over HTTP.
type mcpHandler struct {
	handler   mcp.Handler
	responder transportcore.ErrorResponder
}

// NewMCPHandler creates a handler for MCP JSON-RPC requests.
// It parses JSON-RPC requests, delegates to the MCP handler, and returns
// JSON-RPC responses. The Content-Type header negotiates the wire codec
// (JSON by default, MessagePack when requested); the response is encoded
// with the same codec the request was decoded with.
func NewMCPHandler(handler mcp.Handler, responder transportcore.ErrorResponder) http.Handler {
	if handler == nil {
		panic("handler cannot be nil")
	}
	if responder == nil {
		panic("responder cannot be nil")
	}

	return &mcpHandler{
		handler:   handler,
		responder: responder,
	}
}

// ServeHTTP handles POST requests for MCP protocol.
// Only POST method is allowed for JSON-RPC requests.
func (h *mcpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	c := codec.ByContentType(r.Header.Get(pkgoauth.HeaderContentType))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read request body", "error", err)
		h.responder.BadRequest(w, err)
		return
	}
	defer func() {
		if closeErr := r.Body.Close(); closeErr != nil {
			slog.Warn("failed to close request body", "error", closeErr)
		}
	}()

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		h.serveBatch(w, r, c, trimmed)
		return
	}

	var req mcp.Request
	if err := c.Decode(body, &req); err != nil {
		slog.Error("failed to parse JSON-RPC request", "error", err)
		h.sendJSONRPCError(w, c, nil, mcp.CodeParseError, "Parse error", err)
		return
	}

	if err := req.Validate(); err != nil {
		slog.Error("invalid JSON-RPC request", "error", err)
		h.sendJSONRPCError(w, c, req.ID, mcp.CodeInvalidRequest, "Invalid request", err)
		return
	}

	resp, err := h.handler.HandleRequest(r.Context(), &req)
	if err != nil {
		slog.Error("MCP handler error", "error", err, "method", req.Method)
		h.sendJSONRPCError(w, c, req.ID, mcp.CodeInternalError, "Internal error", err)
		return
	}

	if req.ID == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.sendJSONRPCResponse(w, c, resp)
}

// serveBatch decodes a JSON-RPC batch (an array of requests) and dispatches
// it through the handler's HandleBatch method, when it implements one.
func (h *mcpHandler) serveBatch(w http.ResponseWriter, r *http.Request, c codec.Codec, body []byte) {
	var reqs []*mcp.Request
	if err := c.Decode(body, &reqs); err != nil {
		slog.Error("failed to parse JSON-RPC batch", "error", err)
		h.sendJSONRPCError(w, c, nil, mcp.CodeParseError, "Parse error", err)
		return
	}

	bh, ok := h.handler.(batchHandler)
	if !ok {
		h.sendJSONRPCError(w, c, nil, mcp.CodeInternalError, "batch requests not supported", nil)
		return
	}

	responses, err := bh.HandleBatch(r.Context(), reqs)
	if err != nil {
		slog.Error("MCP batch handler error", "error", err)
	}

	out := make([]*mcp.Response, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			out = append(out, resp)
		}
	}

	w.Header().Set(pkgoauth.HeaderContentType, c.ContentType())
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
	data, err := c.Encode(out)
	if err != nil {
		slog.Error("failed to encode batch response", "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write batch response", "error", err)
	}
}

// sendJSONRPCResponse sends a JSON-RPC response to the client.
func (h *mcpHandler) sendJSONRPCResponse(w http.ResponseWriter, c codec.Codec, resp *mcp.Response) {
	w.Header().Set(pkgoauth.HeaderContentType, c.ContentType())
	w.WriteHeader(http.StatusOK)

	data, err := c.Encode(resp)
	if err != nil {
		slog.Error("failed to encode JSON-RPC response", "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response to the client.
func (h *mcpHandler) sendJSONRPCError(w http.ResponseWriter, c codec.Codec, id any, code int, message string, cause error) {
	resp := &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error: &mcp.Error{
			Code:    code,
			Message: message,
			Cause:   cause,
		},
	}

	w.Header().Set(pkgoauth.HeaderContentType, c.ContentType())
	w.WriteHeader(http.StatusOK) // JSON-RPC errors still return 200 OK

	data, err := c.Encode(resp)
	if err != nil {
		slog.Error("failed to encode JSON-RPC error response", "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write JSON-RPC error response", "error", err)
	}
}
