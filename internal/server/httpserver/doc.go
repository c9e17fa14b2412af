// Package httpserver provides the local control server for dxshell.
//
// The server exposes the running controller over loopback HTTP with
// stdlib net/http:
//
//   - GET /health, GET /metrics
//   - GET /v1/state
//   - POST /v1/bridge, /v1/back, /v1/proceed, /v1/retry
//
// Every request passes through RequestID, Recover and AccessLog, in that
// order. Instrument sits next to the mux and counts requests per route. Errors are answered with the Response envelope carrying the
// domain error code.
package httpserver
