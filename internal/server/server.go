// Package server composes the registry, router, resilience, and security
// layers into runnable entry points for each wire binding (spec §4.10, C10
// server façade). It replaces the teacher's flat main.go wiring with a
// builder that every transport's Run* function shares.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Epistates/turbomcp-sub009/internal/config"
	"github.com/Epistates/turbomcp-sub009/internal/dispatcher"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
	"github.com/Epistates/turbomcp-sub009/internal/oauth"
	"github.com/Epistates/turbomcp-sub009/internal/registry"
	"github.com/Epistates/turbomcp-sub009/internal/resilience"
	"github.com/Epistates/turbomcp-sub009/internal/router"
	"github.com/Epistates/turbomcp-sub009/internal/security"
	"github.com/Epistates/turbomcp-sub009/internal/transport"
	"github.com/Epistates/turbomcp-sub009/internal/transport/stdio"
	"github.com/Epistates/turbomcp-sub009/internal/transport/tcp"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
	"github.com/Epistates/turbomcp-sub009/internal/transport/unix"
	"github.com/Epistates/turbomcp-sub009/internal/transport/websocket"
)

// shutdownGracePeriod bounds how long RunHTTP waits for in-flight requests
// to drain before forcing the listener closed.
const shutdownGracePeriod = 30 * time.Second

// Server bundles the composed registry and router plus the resources
// needed to start any of the Run* entry points.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	Registry *registry.Registry
	Router   *router.Router
	Turbo    *resilience.Config
}

// Option configures a Server during Build.
type Option func(*Server)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithResilience sets the retry/circuit-breaker/health/dedup tuning applied
// to outbound sends. Omit to run without the resilience wrapper.
func WithResilience(cfg resilience.Config) Option {
	return func(s *Server) { s.Turbo = &cfg }
}

// Build constructs a Server: an empty Registry, a Router wired to it and
// to info, ready for tool/resource/prompt registration before any Run*
// call.
func Build(cfg *config.Config, info router.Info, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   slog.Default(),
		Registry: registry.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Router = router.New(info, s.Registry)
	return s
}

func (s *Server) securityPreset() security.Preset {
	switch s.cfg.SecurityPreset {
	case "high-security":
		return security.HighSecurityPreset(s.cfg.AuthorizationServers)
	case "relaxed":
		return security.RelaxedPreset()
	default:
		return security.BalancedPreset(s.cfg.AuthorizationServers)
	}
}

// RunHTTP serves the MCP endpoint over HTTP, reusing the teacher's OAuth
// transport wiring (internal/transport) for authentication and adding the
// C8 security middleware chain (size limit, origin check, rate limit,
// session) in front of it.
func (s *Server) RunHTTP(ctx context.Context, validator oauth.TokenValidator, metadataSvc oauth.MetadataService) error {
	metadataURL := metadataSvc.GetMetadataURL()
	responder := transport.NewErrorResponder(metadataURL)
	securityChain, err := security.Chain(s.securityPreset(), responder)
	if err != nil {
		return fmt.Errorf("building security chain: %w", err)
	}

	httpRouter := transport.NewRouter()
	httpRouter.Use(securityChain...)
	httpRouter.Use(transport.NewRecoveryMiddleware(responder, s.logger), transport.NewLoggingMiddleware(s.logger))

	httpRouter.Handle("GET /.well-known/oauth-protected-resource", transport.NewMetadataHandler(metadataSvc, responder))
	httpRouter.Handle("GET /health", transport.NewHealthHandler(responder))

	authMiddleware := transport.NewAuthMiddleware(validator, responder, metadataURL)
	mcpHandler := transport.NewMCPHandler(s.Router, responder)
	httpRouter.Handle("POST /mcp", authMiddleware.Authenticate()(mcpHandler))

	services := transport.NewServer(s.cfg, httpRouter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- services.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return services.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// RunStdio serves MCP over stdin/stdout using newline-delimited JSON
// framing, the default transport for locally-spawned MCP servers.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.runLineTransport(ctx, stdio.New())
}

// RunTCP serves MCP over a dialed TCP connection at cfg.TCPAddr.
func (s *Server) RunTCP(ctx context.Context) error {
	return s.runLineTransport(ctx, tcp.New(s.cfg.TCPAddr))
}

// RunUnix serves MCP over a dialed Unix domain socket at
// cfg.UnixSocketPath.
func (s *Server) RunUnix(ctx context.Context) error {
	return s.runLineTransport(ctx, unix.New(s.cfg.UnixSocketPath))
}

// RunWebSocket serves MCP over WebSocket connections accepted on
// cfg.WebSocketAddr, one runLineTransport loop per accepted connection.
func (s *Server) RunWebSocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Upgrade(w, r)
		if err != nil {
			s.logger.Error("websocket upgrade failed", "error", err)
			return
		}
		go func() {
			if err := s.runLineTransport(ctx, conn); err != nil {
				s.logger.Error("websocket connection ended", "error", err)
			}
		}()
	})

	httpSrv := &http.Server{Addr: s.cfg.WebSocketAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// wireEnvelope decodes an incoming line before we know whether it is a
// request/notification from the client or a response to a server-initiated
// call the dispatcher has outstanding.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcp.Error      `json:"error,omitempty"`
}

// runLineTransport drives the connect/receive/dispatch/send loop shared by
// every newline-framed transport. Each connection gets its own Dispatcher
// so a tool handler can reach back out to the client (elicitation, sampling,
// roots) over the same wire that carries inbound requests.
func (s *Server) runLineTransport(ctx context.Context, t transportcore.Transport) error {
	if err := t.Connect(ctx); err != nil {
		return fmt.Errorf("connecting transport: %w", err)
	}
	defer t.Disconnect(context.Background())

	var turbo *resilience.Turbo
	if s.Turbo != nil {
		turbo = resilience.NewTurbo(t, *s.Turbo)
	}
	send := func(ctx context.Context, payload []byte) error {
		if turbo != nil {
			return turbo.Send(ctx, payload)
		}
		return t.Send(ctx, payload)
	}

	disp := dispatcher.New(func(ctx context.Context, req *mcp.Request) error {
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		return send(ctx, payload)
	}, dispatcher.ClientCapabilities{})
	ctx = dispatcher.WithContext(ctx, disp)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("receive failed", "error", err)
			return err
		}

		var env wireEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			s.logger.Warn("dropping malformed message", "error", err)
			continue
		}

		if env.Method == "" {
			if id, ok := env.ID.(string); ok {
				disp.Resolve(id, env.Result, env.Error)
			}
			continue
		}

		if env.Method == "initialize" {
			var params mcp.InitializeParams
			if err := json.Unmarshal(env.Params, &params); err == nil {
				disp.SetClientCapabilities(dispatcher.ClientCapabilities{
					Elicitation: params.Capabilities.Elicitation != nil,
					Sampling:    params.Capabilities.Sampling != nil,
					Roots:       params.Capabilities.Roots != nil,
				})
			}
		}

		req := &mcp.Request{JSONRPC: env.JSONRPC, ID: env.ID, Method: env.Method, Params: env.Params}
		resp, err := s.Router.HandleRequest(ctx, req)
		if err != nil {
			s.logger.Error("handler error", "error", err)
			continue
		}
		if req.ID == nil {
			continue // notification, no response expected
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("marshal response failed", "error", err)
			continue
		}

		if err := send(ctx, payload); err != nil {
			s.logger.Error("send failed", "error", err)
			return err
		}
	}
}
