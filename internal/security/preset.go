package security

import (
	"net/http"
	"time"

	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// Preset bundles every C8 middleware's configuration into one named
// profile, resolving the "what does a security Config actually look like"
// open question as three converged shapes instead of one fully generic
// knob-for-everything struct.
type Preset struct {
	Name            string
	Origin          OriginConfig
	Session         SessionConfig
	RateLimitRPS    float64
	RateLimitBurst  int
}

// HighSecurityPreset: explicit origin allowlist only, short sessions, tight
// rate limits. Intended for internet-facing deployments.
func HighSecurityPreset(allowedOrigins []string) Preset {
	return Preset{
		Name: "high-security",
		Origin: OriginConfig{
			AllowedOrigins:       allowedOrigins,
			AllowCredentials:     true,
			AllowLocalhostAlways: false,
		},
		Session: SessionConfig{
			IdleTimeout:     5 * time.Minute,
			AbsoluteTimeout: 2 * time.Hour,
			MaxPerIP:        10,
			Header:          "Mcp-Session-Id",
		},
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// BalancedPreset: origin allowlist plus localhost, moderate session and
// rate-limit tuning. The default for most deployments.
func BalancedPreset(allowedOrigins []string) Preset {
	return Preset{
		Name: "balanced",
		Origin: OriginConfig{
			AllowedOrigins:       allowedOrigins,
			AllowCredentials:     true,
			AllowLocalhostAlways: true,
		},
		Session: DefaultSessionConfig(),
		RateLimitRPS:   50,
		RateLimitBurst: 100,
	}
}

// RelaxedPreset: wildcard origins without credentials, generous sessions
// and rate limits. Intended for local development only.
func RelaxedPreset() Preset {
	return Preset{
		Name: "relaxed",
		Origin: OriginConfig{
			AllowedOrigins:       []string{"*"},
			AllowCredentials:     false,
			AllowLocalhostAlways: true,
		},
		Session: SessionConfig{
			IdleTimeout:     24 * time.Hour,
			AbsoluteTimeout: 7 * 24 * time.Hour,
			MaxPerIP:        1000,
			Header:          "Mcp-Session-Id",
		},
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
}

// Chain composes SizeLimit, origin check, rate limiting, and session
// management (in that fixed order per spec §7) using preset's tuning.
// Authentication is not part of this chain. server.RunHTTP applies the
// OAuth AuthMiddleware to the POST /mcp handler only, so authentication
// runs after every middleware returned here, rate limiting included.
func Chain(preset Preset, responder transportcore.ErrorResponder) ([]transportcore.Middleware, error) {
	originMW, err := NewOriginCheck(preset.Origin, responder)
	if err != nil {
		return nil, err
	}

	limiter := NewLocalLimiter(preset.RateLimitRPS, preset.RateLimitBurst)
	sessions := NewSessionManager(preset.Session)

	return []transportcore.Middleware{
		SizeLimit(responder),
		originMW,
		RateLimit(limiter, keyFromRequest, responder),
		SessionMiddleware(sessions, responder),
	}, nil
}

func keyFromRequest(r *http.Request) string {
	if tenant, ok := TenantFromContext(r.Context()); ok {
		return tenant
	}
	return clientIP(r)
}
