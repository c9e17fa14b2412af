package service

import "github.com/yndnr/dxshell-go/internal/core/domain"

// SessionState is a point-in-time copy of the controller state.
//
// Each field has one writer: the token belongs to SessionStore, the screen
// fields and connectivity to Navigator. State() assembles the copy so
// callers never read the live fields.
type SessionState struct {
	ActiveScreen  domain.Screen `json:"active_screen" yaml:"active_screen"`
	RestoreScreen domain.Screen `json:"restore_screen,omitempty" yaml:"restore_screen,omitempty"`
	Connected     bool          `json:"connected" yaml:"connected"`
	HasToken      bool          `json:"has_token" yaml:"has_token"`
	HandleBound   bool          `json:"handle_bound" yaml:"handle_bound"`
}
