package security

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// SessionConfig tunes the session manager.
type SessionConfig struct {
	IdleTimeout     time.Duration
	AbsoluteTimeout time.Duration
	MaxPerIP        int
	// Header is the HTTP header carrying the session ID, e.g. "Mcp-Session-Id".
	Header string
}

// DefaultSessionConfig matches common MCP HTTP transport defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout:     30 * time.Minute,
		AbsoluteTimeout: 24 * time.Hour,
		MaxPerIP:        100,
		Header:          "Mcp-Session-Id",
	}
}

type session struct {
	id        string
	ip        string
	createdAt time.Time
	lastSeen  time.Time
}

// SessionManager binds sessions to the originating IP, enforces idle and
// absolute timeouts, caps sessions per IP, and rotates session IDs on
// renewal.
type SessionManager struct {
	cfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*session
	byIP     map[string]int
}

// NewSessionManager constructs an empty SessionManager.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sessions: make(map[string]*session),
		byIP:     make(map[string]int),
	}
}

// Create starts a new session for ip, rejecting it if ip has reached
// MaxPerIP active sessions.
func (m *SessionManager) Create(ip string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byIP[ip] >= m.cfg.MaxPerIP {
		return "", internalerrors.NewKind("security", "SessionManager.Create", internalerrors.KindRateLimited,
			fmt.Errorf("ip %q has reached the maximum of %d sessions", ip, m.cfg.MaxPerIP))
	}

	id := uuid.NewString()
	now := time.Now()
	m.sessions[id] = &session{id: id, ip: ip, createdAt: now, lastSeen: now}
	m.byIP[ip]++
	return id, nil
}

// Validate checks that id exists, is bound to ip, and has not exceeded its
// idle or absolute timeout, touching lastSeen on success.
func (m *SessionManager) Validate(id, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return internalerrors.NewKind("security", "SessionManager.Validate", internalerrors.KindSessionExpired,
			fmt.Errorf("session %q not found", id))
	}
	if s.ip != ip {
		delete(m.sessions, id)
		m.byIP[s.ip]--
		return internalerrors.NewKind("security", "SessionManager.Validate", internalerrors.KindIPMismatch,
			fmt.Errorf("session %q was bound to a different IP", id))
	}

	now := time.Now()
	if now.Sub(s.lastSeen) > m.cfg.IdleTimeout || now.Sub(s.createdAt) > m.cfg.AbsoluteTimeout {
		delete(m.sessions, id)
		m.byIP[s.ip]--
		return internalerrors.NewKind("security", "SessionManager.Validate", internalerrors.KindSessionExpired,
			fmt.Errorf("session %q expired", id))
	}

	s.lastSeen = now
	return nil
}

// Rotate replaces id with a freshly generated session ID, preserving the
// session's IP binding and absolute-timeout clock.
func (m *SessionManager) Rotate(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return "", internalerrors.NewKind("security", "SessionManager.Rotate", internalerrors.KindSessionExpired,
			fmt.Errorf("session %q not found", id))
	}
	newID := uuid.NewString()
	s.id = newID
	s.lastSeen = time.Now()
	delete(m.sessions, id)
	m.sessions[newID] = s
	return newID, nil
}

// End removes a session, releasing its IP slot.
func (m *SessionManager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.byIP[s.ip]--
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionMiddleware enforces session validation for requests that carry
// the configured session header, and mints a new session (issuing the
// header on the response) for requests that do not.
func SessionMiddleware(m *SessionManager, responder transportcore.ErrorResponder) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			id := r.Header.Get(m.cfg.Header)

			if id == "" {
				newID, err := m.Create(ip)
				if err != nil {
					responder.BadRequest(w, err)
					return
				}
				w.Header().Set(m.cfg.Header, newID)
				next.ServeHTTP(w, r)
				return
			}

			if err := m.Validate(id, ip); err != nil {
				responder.Unauthorized(w, "", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
