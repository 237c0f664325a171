package security

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// KeyFunc extracts the rate-limit bucket key from a request, typically the
// client IP or an authenticated tenant ID.
type KeyFunc func(r *http.Request) string

// ByRemoteAddr buckets by the request's remote address.
func ByRemoteAddr(r *http.Request) string {
	return r.RemoteAddr
}

// Limiter is satisfied by both the in-process and Redis-backed limiters.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// localLimiter is a token-bucket limiter backed by golang.org/x/time/rate,
// one bucket per key, used when no shared store is configured. It keeps no
// sliding window of past request times.
type localLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
}

// NewLocalLimiter builds a per-process rate limiter: rps requests per
// second sustained, burst allowed instantaneously, tracked independently
// per key.
func NewLocalLimiter(rps float64, burst int) Limiter {
	return &localLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow(), nil
}

// redisLimiter implements a fixed-window counter using INCR+EXPIRE, for
// rate limiting shared across multiple server processes.
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a limiter backed by client, allowing at most limit
// requests per key within each window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Incr(ctx, "ratelimit:"+key).Result()
	if err != nil {
		return false, internalerrors.NewKind("security", "redisLimiter.Allow", internalerrors.KindInternal, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, "ratelimit:"+key, l.window).Err(); err != nil {
			return false, internalerrors.NewKind("security", "redisLimiter.Allow", internalerrors.KindInternal, err)
		}
	}
	return count <= int64(l.limit), nil
}

// RateLimit returns middleware enforcing limiter per the bucket key
// extracted by keyFn.
func RateLimit(limiter Limiter, keyFn KeyFunc, responder transportcore.ErrorResponder) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				responder.InternalError(w, err)
				return
			}
			if !ok {
				responder.BadRequest(w, internalerrors.NewKind("security", "RateLimit", internalerrors.KindRateLimited,
					fmt.Errorf("rate limit exceeded for %q", key)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
