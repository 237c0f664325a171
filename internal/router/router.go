// Package router dispatches MCP JSON-RPC requests to the registered tool,
// resource, prompt, and completion handlers (spec §4.4). It replaces a flat
// switch statement with a method table so the built-in surface and any
// server-specific extension methods share one dispatch path.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/semaphore"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
	"github.com/Epistates/turbomcp-sub009/internal/registry"
)

// maxBatchConcurrency bounds how many requests within one JSON-RPC batch
// execute concurrently, so a single oversized batch cannot exhaust worker
// goroutines or downstream connections.
const maxBatchConcurrency = 16

// Info carries the identity and capability set a router advertises during
// initialize.
type Info struct {
	Server       mcp.Implementation
	Capabilities mcp.Capabilities
}

// methodFunc handles one method's raw params and returns its result payload.
type methodFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// Router implements mcp.Handler by dispatching to a Registry and to any
// custom methods registered via RegisterMethod.
type Router struct {
	info Info
	reg  *registry.Registry

	mu      sync.RWMutex
	methods map[string]methodFunc

	subMu         sync.Mutex
	subscriptions map[string]int

	sem *semaphore.Weighted
}

// New builds a Router wired to reg, pre-populated with the built-in method
// table (spec §4.4). Custom methods can be added afterward with
// RegisterMethod, as long as they do not collide with a built-in name.
func New(info Info, reg *registry.Registry) *Router {
	r := &Router{
		info:          info,
		reg:           reg,
		methods:       make(map[string]methodFunc),
		subscriptions: make(map[string]int),
		sem:           semaphore.NewWeighted(maxBatchConcurrency),
	}
	r.registerBuiltins()
	return r
}

// RegisterMethod adds a server-specific method outside the built-in table.
// It is rejected if name collides with a built-in method.
func (r *Router) RegisterMethod(name string, fn methodFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[name]; exists {
		return internalerrors.NewKind("router", "RegisterMethod", internalerrors.KindConfiguration,
			fmt.Errorf("method %q already registered", name))
	}
	r.methods[name] = fn
	return nil
}

func (r *Router) registerBuiltins() {
	r.methods["initialize"] = r.handleInitialize
	r.methods["ping"] = r.handlePing
	r.methods["tools/list"] = r.handleToolsList
	r.methods["tools/call"] = r.handleToolsCall
	r.methods["resources/list"] = r.handleResourcesList
	r.methods["resources/templates/list"] = r.handleResourceTemplatesList
	r.methods["resources/read"] = r.handleResourcesRead
	r.methods["resources/subscribe"] = r.handleResourcesSubscribe
	r.methods["resources/unsubscribe"] = r.handleResourcesUnsubscribe
	r.methods["prompts/list"] = r.handlePromptsList
	r.methods["prompts/get"] = r.handlePromptsGet
	r.methods["completion/complete"] = r.handleCompletionComplete
	r.methods["logging/setLevel"] = r.handleLoggingSetLevel
}

// HandleRequest implements mcp.Handler for a single request.
func (r *Router) HandleRequest(ctx context.Context, req *mcp.Request) (*mcp.Response, error) {
	if err := req.Validate(); err != nil {
		return errorResponse(req.ID, mcp.CodeInvalidRequest, "invalid request", err), nil
	}

	r.mu.RLock()
	fn, ok := r.methods[req.Method]
	r.mu.RUnlock()
	if !ok {
		return errorResponse(req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil), nil
	}

	result, err := fn(ctx, req.Params)
	if err != nil {
		return r.errorResponseFromErr(req.ID, err), nil
	}
	return &mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: req.ID, Result: result}, nil
}

// HandleBatch dispatches every request in reqs concurrently, bounded by
// maxBatchConcurrency, and returns responses in the same order as the
// input requests (spec §4.4: batch order preservation). Notifications
// (requests with no ID) produce a nil slot and are omitted by the caller
// before framing the JSON-RPC batch response.
func (r *Router) HandleBatch(ctx context.Context, reqs []*mcp.Request) ([]*mcp.Response, error) {
	responses := make([]*mcp.Response, len(reqs))
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for i, req := range reqs {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
			break
		}
		wg.Add(1)
		go func(i int, req *mcp.Request) {
			defer wg.Done()
			defer r.sem.Release(1)
			resp, err := r.HandleRequest(ctx, req)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			if req.ID != nil {
				responses[i] = resp
			}
		}(i, req)
	}
	wg.Wait()
	return responses, firstErr
}

func (r *Router) errorResponseFromErr(id any, err error) *mcp.Response {
	if kind, ok := internalerrors.KindOf(err); ok {
		code := codeForKind(kind)
		return errorResponse(id, code, err.Error(), nil)
	}
	return errorResponse(id, mcp.CodeInternalError, "internal error", err)
}

func codeForKind(kind internalerrors.Kind) int {
	switch kind {
	case internalerrors.KindParse:
		return mcp.CodeParseError
	case internalerrors.KindInvalidRequest:
		return mcp.CodeInvalidRequest
	case internalerrors.KindMethodNotFound:
		return mcp.CodeMethodNotFound
	case internalerrors.KindInvalidParams:
		return mcp.CodeInvalidParams
	default:
		return mcp.CodeInternalError
	}
}

func errorResponse(id any, code int, message string, cause error) *mcp.Response {
	return &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error:   &mcp.Error{Code: code, Message: message, Cause: cause},
	}
}

// paramValidator runs the `validate` struct tags declared on the mcp params
// types (required fields, enumerated values) so malformed params fail with
// a precise message before reaching a tool or resource handler.
var paramValidator = validator.New()

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, internalerrors.NewKind("router", "decodeParams", internalerrors.KindInvalidParams, err)
	}
	if err := paramValidator.Struct(v); err != nil {
		var zero T
		return zero, internalerrors.NewKind("router", "decodeParams", internalerrors.KindInvalidParams, err)
	}
	return v, nil
}

func (r *Router) handleInitialize(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.InitializeParams](raw)
	if err != nil {
		return nil, err
	}
	if params.ProtocolVersion == "" {
		return nil, internalerrors.NewKind("router", "initialize", internalerrors.KindInvalidParams,
			fmt.Errorf("protocolVersion is required"))
	}
	return &mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		ServerInfo:      r.info.Server,
		Capabilities:    r.info.Capabilities,
	}, nil
}

func (r *Router) handlePing(ctx context.Context, raw json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

func (r *Router) handleToolsList(ctx context.Context, raw json.RawMessage) (any, error) {
	return &mcp.ToolsListResult{Tools: r.reg.Tools.List()}, nil
}

func (r *Router) handleToolsCall(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.ToolsCallParams](raw)
	if err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, internalerrors.NewKind("router", "tools/call", internalerrors.KindInvalidParams,
			fmt.Errorf("name is required"))
	}
	tool, err := r.reg.Tools.Get(params.Name)
	if err != nil {
		return nil, err
	}
	if err := validateToolArguments(tool.Definition().InputSchema, params.Arguments); err != nil {
		return nil, err
	}
	result, execErr := tool.Execute(ctx, params.Arguments)
	if execErr != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent(execErr.Error())},
			IsError: true,
		}, nil
	}
	if content, ok := result.(*mcp.CallToolResult); ok {
		return content, nil
	}
	if content, ok := result.([]mcp.Content); ok {
		return &mcp.CallToolResult{Content: content}, nil
	}
	if text, ok := result.(string); ok {
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent(text)}}, nil
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.TextContent(fmt.Sprintf("%v", result))},
		StructuredContent: result,
	}, nil
}

func (r *Router) handleResourcesList(ctx context.Context, raw json.RawMessage) (any, error) {
	return &mcp.ResourcesListResult{Resources: r.reg.Resources.List()}, nil
}

func (r *Router) handleResourceTemplatesList(ctx context.Context, raw json.RawMessage) (any, error) {
	return &mcp.ResourceTemplatesListResult{ResourceTemplates: r.reg.Resources.ListTemplates()}, nil
}

func (r *Router) handleResourcesRead(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.ResourcesReadParams](raw)
	if err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, internalerrors.NewKind("router", "resources/read", internalerrors.KindInvalidParams,
			fmt.Errorf("uri is required"))
	}
	resource, err := r.reg.Resources.Get(ctx, params.URI)
	if err != nil {
		return nil, err
	}
	return &mcp.ResourcesReadResult{Contents: []mcp.ResourceContent{{
		URI:      resource.URI,
		MimeType: resource.MimeType,
		Text:     resource.Text,
		Blob:     resource.Blob,
	}}}, nil
}

// handleResourcesSubscribe increments the refcount for a URI. Multiple
// subscribers to the same URI are counted together; the count is the only
// subscription state kept, and no change-notification source is attached
// to it.
func (r *Router) handleResourcesSubscribe(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.ResourcesSubscribeParams](raw)
	if err != nil {
		return nil, err
	}
	r.subMu.Lock()
	r.subscriptions[params.URI]++
	r.subMu.Unlock()
	return map[string]any{}, nil
}

// handleResourcesUnsubscribe decrements the refcount. Per spec §4.4 the
// refcount must never go negative; unsubscribing a URI with no active
// subscription is a no-op rather than an error, matching how idempotent
// unsubscribe calls behave elsewhere in the protocol.
func (r *Router) handleResourcesUnsubscribe(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.ResourcesUnsubscribeParams](raw)
	if err != nil {
		return nil, err
	}
	r.subMu.Lock()
	if count := r.subscriptions[params.URI]; count > 0 {
		r.subscriptions[params.URI] = count - 1
	}
	r.subMu.Unlock()
	return map[string]any{}, nil
}

func (r *Router) handlePromptsList(ctx context.Context, raw json.RawMessage) (any, error) {
	return &mcp.PromptsListResult{Prompts: r.reg.Prompts.List()}, nil
}

func (r *Router) handlePromptsGet(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.PromptsGetParams](raw)
	if err != nil {
		return nil, err
	}
	provider, err := r.reg.Prompts.Get(params.Name)
	if err != nil {
		return nil, err
	}
	return provider.Render(ctx, params.Arguments)
}

func (r *Router) handleCompletionComplete(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.CompletionCompleteParams](raw)
	if err != nil {
		return nil, err
	}
	handler, ok := r.reg.Completions.Get(params.Ref.Type)
	if !ok {
		return &mcp.CompletionCompleteResult{Completion: mcp.CompletionValues{Values: []string{}}}, nil
	}
	values, err := handler.Complete(ctx, params.Ref, params.Argument)
	if err != nil {
		return nil, err
	}
	return &mcp.CompletionCompleteResult{Completion: *values}, nil
}

func (r *Router) handleLoggingSetLevel(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[mcp.LoggingSetLevelParams](raw)
	if err != nil {
		return nil, err
	}
	if params.Level == "" {
		return nil, internalerrors.NewKind("router", "logging/setLevel", internalerrors.KindInvalidParams,
			fmt.Errorf("level is required"))
	}
	return map[string]any{}, nil
}
