// Package server provides the HTTP API for MishPulse.
//
// This package is internal to MishPulse and handles all HTTP concerns:
//
//   - Project registration: POST /projects returns the submission link
//   - Status submission: POST /projects/{token}/statuses
//   - Status history: GET /projects/{token}/statuses
//   - Live updates: Server-Sent Events at GET /projects/{token}/statuses/stream
//   - Operations: GET / (banner), GET /health, GET /metrics (Prometheus)
//
// Requests are validated here before reaching the registry; registry error
// codes are mapped to HTTP statuses (not found → 404, non-increasing
// timestamp or invalid input → 400, internal → 500). Every request passes
// through request-id, panic recovery, rate limiting, logging and metrics
// middleware. Metrics and logs use the route template, never the raw path, so
// submission tokens do not leak.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
