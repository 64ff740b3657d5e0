// Package server provides HTTP routing, middleware and the handlers for the browser and terminal login flows.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns on an [http.ServeMux].
//
// # Web Application
//
// [App] serves the routes used by the bracket page:
//
//	GET  /                    {"authenticated": bool}, echoing auth_error and provider_code
//	GET  /auth/login          302 to the Spotify authorize URL
//	GET  /auth/callback       302 to / with auth_error=<reason> on failure
//	POST /auth/logout         302 to /
//	GET  /api/profile         {"profile": {...}}
//	GET  /api/sample-tracks   {"tracks": [...]}, count in 8 16 32 64 128 (default 32)
//	GET  /healthz
//	GET  /metrics             Prometheus exposition
//
// Session state lives in sealed cookies (see package session); the server keeps none.
// Errors are JSON objects with a single "message" field. Upstream response bodies are logged, never returned.
//
// # Terminal Callback Handler
//
// [CallbackHandler] serves the redirect URI on a temporary localhost listener while the play command
// waits for the browser. It processes a single callback and sends the outcome through a channel.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
