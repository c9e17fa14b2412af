// Package domain defines the core domain models for the dxshell controller.
//
// Domain models are plain values without IO dependencies. This package contains:
//
//   - Screen: screen identities and the deployment mode that picks the active screen
//   - DeviceIdentity: the device facts sent with every registration handshake
//   - BridgeMessage: inbound messages from the embedded web surface
//   - Errors: coded domain errors shared by all controller components
package domain
