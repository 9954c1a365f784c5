// Package middleware provides stages for httpx.Chain: CORS headers, bearer
// token authentication, per-client rate limiting and request tracing.
//
// Stages that reject a request short-circuit the chain and render their
// response through an httpx.ErrorPages, so rejected requests look like any
// other error page the server produces.
package middleware
