package domain

import (
	"fmt"
	"strings"
)

// Screen identifies a screen of the shell's navigation stack.
type Screen string

// Screens known to the controller.
const (
	ScreenInit        Screen = "Init"
	ScreenWelcome     Screen = "Welcome"
	ScreenOffline     Screen = "Offline"
	ScreenError       Screen = "Error"
	ScreenWebWrapper  Screen = "WebWrapper"
	ScreenPlaceholder Screen = "Placeholder"
)

// String returns the screen name.
func (s Screen) String() string {
	return string(s)
}

// IsActive reports whether s is one of the post-registration screens.
func (s Screen) IsActive() bool {
	return s == ScreenWebWrapper || s == ScreenPlaceholder
}

// DeploymentMode selects what the shell shows once the device is registered.
type DeploymentMode string

const (
	// ModeWeb hosts the server-delivered web application.
	ModeWeb DeploymentMode = "web"
	// ModeNative shows the native placeholder screen.
	ModeNative DeploymentMode = "native"
)

// ParseDeploymentMode parses a mode name. The empty string means ModeWeb.
func ParseDeploymentMode(s string) (DeploymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeWeb):
		return ModeWeb, nil
	case string(ModeNative):
		return ModeNative, nil
	default:
		return "", ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown deployment mode %q", s))
	}
}

// ActiveScreen returns the post-registration screen for the mode.
func (m DeploymentMode) ActiveScreen() Screen {
	if m == ModeNative {
		return ScreenPlaceholder
	}
	return ScreenWebWrapper
}

// ConnectivityState is one report from the connectivity event source.
type ConnectivityState struct {
	IsConnected bool `json:"is_connected"`
}
