// Package oautherr provides OAuth 2.1 error constructors for the bearer-token
// authentication step of the C8 middleware chain. Every constructor stamps
// its DomainError with one of internal/errors' taxonomy Kinds so a token
// failure on the stdio/TCP/Unix transports (which have no HTTP status line
// to carry a 401/403) still surfaces as the right JSON-RPC error.data.kind
// alongside its RFC 6749 oauth_error code.
// This package is separate from internal/oauth to avoid import cycles
// when internal packages need to create OAuth errors.
package oautherr

import (
	"fmt"

	ierrors "github.com/Epistates/turbomcp-sub009/internal/errors"
)

// Domain identifier for OAuth errors.
const domainOAuth = "oauth"

// NewInvalidTokenError creates a DomainError for invalid token with context.
func NewInvalidTokenError(op string, err error) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, err).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken)
}

// NewInsufficientScopeError creates a DomainError for insufficient scope.
func NewInsufficientScopeError(op string, required []string) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, fmt.Errorf("insufficient_scope")).
		WithContext("oauth_error", ierrors.ErrorCodeInsufficientScope).
		WithContext("required_scopes", required)
}

// NewInvalidAudienceError creates a DomainError for invalid audience.
func NewInvalidAudienceError(op string, expected string, actual []string) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, fmt.Errorf("invalid audience")).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("expected_audience", expected).
		WithContext("actual_audience", actual)
}

// NewTokenExpiredError creates a DomainError for expired token.
func NewTokenExpiredError(op string, err error) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthRequired, err).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("reason", "token_expired")
}

// NewInvalidSignatureError creates a DomainError for signature verification failure.
func NewInvalidSignatureError(op string, err error) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, err).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("reason", "invalid_signature")
}

// NewUnsupportedAlgorithmError creates a DomainError for unsupported signing algorithm.
func NewUnsupportedAlgorithmError(op string, algorithm string) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, fmt.Errorf("unsupported algorithm")).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("algorithm", algorithm)
}

// NewMissingClaimError creates a DomainError for missing JWT claim.
func NewMissingClaimError(op string, claim string) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, fmt.Errorf("missing claim: %s", claim)).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("missing_claim", claim)
}

// NewKeyNotFoundError creates a DomainError for JWKS key not found.
func NewKeyNotFoundError(op string, keyID string) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindAuthInvalid, fmt.Errorf("key not found")).
		WithContext("oauth_error", ierrors.ErrorCodeInvalidToken).
		WithContext("key_id", keyID)
}

// NewJWKSFetchError creates a DomainError for JWKS fetch failure.
func NewJWKSFetchError(op string, serverURL string, err error) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindInternal, fmt.Errorf("jwks fetch failed: %v", err)).
		WithContext("authorization_server", serverURL)
}

// NewInvalidMetadataError creates a DomainError for invalid authorization server metadata.
func NewInvalidMetadataError(op string, serverURL string, err error) *ierrors.DomainError {
	return ierrors.NewKind(domainOAuth, op, ierrors.KindInternal, fmt.Errorf("invalid metadata: %v", err)).
		WithContext("authorization_server", serverURL)
}
