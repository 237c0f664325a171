package errors

import "errors"

// Kind categorizes a DomainError into one of the protocol-level error
// taxonomy buckets. It is carried through to the JSON-RPC error envelope's
// error.data.kind field and to HTTP status code selection.
type Kind string

// Taxonomy buckets. Every error raised anywhere in this module maps to
// exactly one of these.
const (
	KindParse            Kind = "Parse"
	KindInvalidRequest    Kind = "InvalidRequest"
	KindMethodNotFound    Kind = "MethodNotFound"
	KindInvalidParams     Kind = "InvalidParams"
	KindInternal          Kind = "Internal"
	KindTimeout           Kind = "Timeout"
	KindCancelled         Kind = "Cancelled"
	KindTransportClosed   Kind = "TransportClosed"
	KindBackpressure      Kind = "Backpressure"
	KindAuthRequired      Kind = "AuthRequired"
	KindAuthInvalid       Kind = "AuthInvalid"
	KindOriginNotAllowed  Kind = "OriginNotAllowed"
	KindRateLimited       Kind = "RateLimited"
	KindPayloadTooLarge   Kind = "PayloadTooLarge"
	KindSessionExpired    Kind = "SessionExpired"
	KindIPMismatch        Kind = "IpMismatch"
	KindCircuitOpen       Kind = "CircuitOpen"
	KindDuplicateRequest  Kind = "DuplicateRequest"
	KindConfiguration     Kind = "Configuration"
	KindHandlerError      Kind = "HandlerError"
)

// sentinel errors for each taxonomy bucket, so callers can use errors.Is
// against a stable value instead of comparing Kind strings.
var (
	ErrParse           = errors.New("parse error")
	ErrTimeout         = errors.New("timeout")
	ErrCancelled       = errors.New("cancelled")
	ErrTransportClosed = errors.New("transport closed")
	ErrBackpressure    = errors.New("backpressure")
	ErrAuthRequired    = errors.New("authentication required")
	ErrAuthInvalid     = errors.New("authentication invalid")
	ErrOriginNotAllowed = errors.New("origin not allowed")
	ErrRateLimited     = errors.New("rate limited")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrSessionExpired  = errors.New("session expired")
	ErrIPMismatch      = errors.New("ip mismatch")
	ErrCircuitOpen     = errors.New("circuit open")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrConfiguration   = errors.New("configuration error")
	ErrHandlerError    = errors.New("handler error")
)

// kindSentinels maps each Kind to its sentinel, used by NewKind below.
var kindSentinels = map[Kind]error{
	KindParse:           ErrParse,
	KindInvalidRequest:   ErrBadRequest,
	KindMethodNotFound:   ErrNotFound,
	KindInvalidParams:    ErrBadRequest,
	KindInternal:         ErrInternal,
	KindTimeout:          ErrTimeout,
	KindCancelled:        ErrCancelled,
	KindTransportClosed:  ErrTransportClosed,
	KindBackpressure:     ErrBackpressure,
	KindAuthRequired:     ErrAuthRequired,
	KindAuthInvalid:      ErrAuthInvalid,
	KindOriginNotAllowed: ErrOriginNotAllowed,
	KindRateLimited:      ErrRateLimited,
	KindPayloadTooLarge:  ErrPayloadTooLarge,
	KindSessionExpired:   ErrSessionExpired,
	KindIPMismatch:       ErrIPMismatch,
	KindCircuitOpen:      ErrCircuitOpen,
	KindDuplicateRequest: ErrDuplicateRequest,
	KindConfiguration:    ErrConfiguration,
	KindHandlerError:     ErrHandlerError,
}

// NewKind creates a DomainError whose Kind sentinel is the one registered
// for the given taxonomy bucket, and stamps the bucket itself into the
// error's context under "kind" so it round-trips into error.data.kind.
func NewKind(domain, op string, kind Kind, err error) *DomainError {
	sentinel, ok := kindSentinels[kind]
	if !ok {
		sentinel = ErrInternal
	}
	return New(domain, op, sentinel, err).WithContext("kind", string(kind))
}

// KindOf extracts the taxonomy bucket recorded on a DomainError, if any.
func KindOf(err error) (Kind, bool) {
	var de *DomainError
	if !errors.As(err, &de) {
		return "", false
	}
	v, ok := de.Context["kind"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return Kind(s), true
}
