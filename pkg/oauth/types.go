// Package oauth provides shared OAuth 2.1 types and constants for the MCP server.
package oauth

// OAuth 2.1 scope constants for MCP operations.
const (
	// ScopeRead allows reading MCP resources.
	ScopeRead = "mcp:read"

	// ScopeWrite allows modifying MCP resources.
	ScopeWrite = "mcp:write"

	// ScopeAdmin allows administrative operations on MCP resources.
	ScopeAdmin = "mcp:admin"
)

// BearerToken is the OAuth 2.1 Bearer token type (RFC 6750). This server is
// a resource server only: it validates bearer tokens issued by an external
// authorization server and never runs an authorization-code or
// client-credentials grant itself, so those grant/response/PKCE constants
// have no home here.
const BearerToken = "Bearer"

// HTTP header names.
const (
	// HeaderAuthorization is the Authorization HTTP header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate HTTP header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderContentType is the Content-Type HTTP header name.
	HeaderContentType = "Content-Type"
)

// Content type constants.
const (
	// ContentTypeJSON is the application/json content type.
	ContentTypeJSON = "application/json"
)
