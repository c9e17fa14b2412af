// Package config defines the dxshell configuration structure.
//
// Values are loaded by infra/confloader on top of Default(), checked with
// Verify() and masked with Sanitize() before they are logged.
package config
