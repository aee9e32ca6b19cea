// Package api hosts the HTTP handlers that front the Cliptide REST API.
//
// The handlers assembled by Handler coordinate request validation and
// response shaping while delegating persistence to storage.Repository
// implementations injected at construction time. Caller identity travels in
// the X-User-Id header and is trusted as-is; the package performs no token
// or session validation and does not reach for globals or singletons.
//
// Failures surface as typed RequestError values mapped once at the response
// boundary. Storage causes are logged through slog and never echoed to
// clients.
//
// Handler implementations assume upstream middleware from internal/server
// has already applied request-id propagation, CORS, security headers,
// metrics, and logging. New routes should preserve that contract.
package api
