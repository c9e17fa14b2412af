// Package storage provides the durable key-value store behind the controller.
//
// The controller keeps three small values on the device: the device-linked
// authentication token, the first-launch marker and the push registration
// record. Every engine implements Store:
//
//   - badger.go: Badger v3, the default on-device engine
//   - sqlite.go: a single-table SQLite database
//   - memory/: process-local map, for tests and ephemeral runs
//   - sealed.go: AEAD wrapper that encrypts values at rest
//
// Each Set/Remove is durable once it returns.
package storage
