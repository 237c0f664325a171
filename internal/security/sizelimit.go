// Package security provides the HTTP middleware chain that sits in front
// of the MCP router: request size limiting, origin checking, rate
// limiting, and session management (spec §7), applied in that fixed order
// by Chain. Tenant extraction is a separate middleware that Chain does not
// include, and OAuth authentication is applied outside this chain.
package security

import (
	"fmt"
	"net/http"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
	"github.com/Epistates/turbomcp-sub009/internal/transport/transportcore"
)

// MaxRequestBytes bounds a single HTTP request body per spec §6/§7.
const MaxRequestBytes = 10 * 1024 * 1024

// SizeLimit rejects any request body larger than MaxRequestBytes before it
// reaches authentication or routing.
func SizeLimit(responder transportcore.ErrorResponder) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > MaxRequestBytes {
				responder.BadRequest(w, internalerrors.NewKind("security", "SizeLimit", internalerrors.KindPayloadTooLarge,
					fmt.Errorf("request body of %d bytes exceeds limit of %d", r.ContentLength, MaxRequestBytes)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
			next.ServeHTTP(w, r)
		})
	}
}
