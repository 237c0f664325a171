package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// OriginConfig controls which Origin header values are permitted.
type OriginConfig struct {
	// AllowedOrigins is the explicit allowlist. A bare "*" is rejected at
	// construction when AllowCredentials is true, per spec §7: wildcard
	// origins combined with credentialed requests would let any site read
	// authenticated responses.
	AllowedOrigins   []string
	AllowCredentials bool
	// AllowLocalhostAlways short-circuits the allowlist for loopback
	// origins, matching local development workflows.
	AllowLocalhostAlways bool
}

// NewOriginCheck validates cfg and returns middleware enforcing it.
// Requests with no Origin header (same-origin or non-browser clients) are
// always allowed through, since there is nothing to check.
func NewOriginCheck(cfg OriginConfig, responder transportcore.ErrorResponder) (transportcore.Middleware, error) {
	if cfg.AllowCredentials {
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				return nil, internalerrors.NewKind("security", "NewOriginCheck", internalerrors.KindConfiguration,
					fmt.Errorf("wildcard origin is forbidden when credentials are allowed"))
			}
		}
	}

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if allowed["*"] || allowed[origin] {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.AllowLocalhostAlways && isLocalhostOrigin(origin) {
				next.ServeHTTP(w, r)
				return
			}

			responder.BadRequest(w, internalerrors.NewKind("security", "OriginCheck", internalerrors.KindOriginNotAllowed,
				fmt.Errorf("origin %q is not allowed", origin)))
		})
	}, nil
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CanonicalizeResourceURI applies RFC 8707 canonicalization: lowercase
// scheme and host, strip a default port, strip a trailing slash except for
// the root path, drop any fragment and query, and reject non-localhost http.
func CanonicalizeResourceURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", internalerrors.NewKind("security", "CanonicalizeResourceURI", internalerrors.KindInvalidParams, err)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())

	if scheme == "http" && !isLocalhostHost(host) {
		return "", internalerrors.NewKind("security", "CanonicalizeResourceURI", internalerrors.KindInvalidParams,
			fmt.Errorf("http scheme is only permitted for localhost resources"))
	}

	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	authority := host
	if port != "" {
		authority = fmt.Sprintf("%s:%s", host, port)
	}

	path := u.Path
	if path == "" {
		path = "/"
	} else if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return fmt.Sprintf("%s://%s%s", scheme, authority, path), nil
}

func isLocalhostHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
