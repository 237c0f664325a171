package resilience

import (
	"context"
	"fmt"
	"time"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// Config bundles the tuning for every resilience layer composed by Turbo.
type Config struct {
	Retry       RetryConfig
	Breaker     BreakerConfig
	HealthFailureThreshold int
	DedupTTLSeconds        int
	DedupCapacity          int
}

// DefaultConfig matches the spec's defaults across all four layers.
func DefaultConfig() Config {
	return Config{
		Retry:                  DefaultRetryConfig(),
		Breaker:                DefaultBreakerConfig(),
		HealthFailureThreshold: 5,
	}
}

// Turbo wraps a transportcore.Transport with retry, circuit breaking,
// health probing, and send-side deduplication, without altering the
// wrapped transport's framing or identity: retries reuse the original
// request ID rather than minting a new one.
type Turbo struct {
	inner   transportcore.Transport
	retrier *Retrier
	breaker *CircuitBreaker
	health  *HealthProbe
	dedup   *Deduplicator
}

// NewTurbo wraps inner with the resilience layers configured by cfg.
func NewTurbo(inner transportcore.Transport, cfg Config) *Turbo {
	return &Turbo{
		inner:   inner,
		retrier: NewRetrier(cfg.Retry),
		breaker: NewCircuitBreaker(cfg.Breaker),
		health:  NewHealthProbe(cfg.HealthFailureThreshold),
		dedup:   NewDeduplicator(time.Duration(cfg.DedupTTLSeconds)*time.Second, cfg.DedupCapacity),
	}
}

func (t *Turbo) Connect(ctx context.Context) error    { return t.inner.Connect(ctx) }
func (t *Turbo) Disconnect(ctx context.Context) error { return t.inner.Disconnect(ctx) }
func (t *Turbo) State() transportcore.State           { return t.inner.State() }
func (t *Turbo) Metrics() transportcore.MetricsSnapshot { return t.inner.Metrics() }
func (t *Turbo) Capabilities() transportcore.Capabilities { return t.inner.Capabilities() }

// Healthy reports the wrapped transport's health-probe assessment.
func (t *Turbo) Healthy() bool {
	return t.health.Healthy()
}

// BreakerState reports the circuit breaker's current state.
func (t *Turbo) BreakerState() BreakerState {
	return t.breaker.State()
}

// SendDeduped sends data unless messageID was already seen within the
// dedup TTL, in which case it returns a DuplicateRequest error without
// touching the wrapped transport.
func (t *Turbo) SendDeduped(ctx context.Context, messageID string, data []byte) error {
	if t.dedup.SeenBefore(messageID) {
		return internalerrors.NewKind("resilience", "SendDeduped", internalerrors.KindDuplicateRequest,
			fmt.Errorf("message %q already sent within dedup window", messageID))
	}
	return t.Send(ctx, data)
}

// Send runs Send through the circuit breaker and retrier, recording the
// outcome against both the breaker and the health probe.
func (t *Turbo) Send(ctx context.Context, data []byte) error {
	if !t.breaker.Allow() {
		return internalerrors.NewKind("resilience", "Send", internalerrors.KindCircuitOpen,
			fmt.Errorf("circuit breaker open"))
	}

	_, err := Do(ctx, t.retrier, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.inner.Send(ctx, data)
	})

	t.breaker.RecordResult(err == nil)
	if err == nil {
		t.health.RecordSuccess()
	} else {
		t.health.RecordFailure()
	}
	return err
}

// Receive delegates directly to the wrapped transport: retrying a blocking
// read would duplicate inbound messages, so only Send is wrapped.
func (t *Turbo) Receive(ctx context.Context) ([]byte, error) {
	return t.inner.Receive(ctx)
}
