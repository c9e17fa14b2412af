// Package service contains the session/bridge controller.
//
// The controller is split into small services that share collaborators
// through the interfaces in ports.go:
//
//   - SessionStore: the authentication token, in memory and persisted
//   - Registrar: the device registration handshake, one in flight at a time
//   - Navigator: entry screen resolution and connectivity driven navigation
//   - Dispatcher: inbound messages from the embedded web surface
//   - PushGate: at-most-once push registration
//
// None of the services panic or leak errors to the host. Failures turn into
// screen transitions, typed errors for the caller, or log lines.
package service
