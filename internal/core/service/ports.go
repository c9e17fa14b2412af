package service

import (
	"context"

	"github.com/yndnr/dxshell-go/internal/core/domain"
)

// KeyValueStore is the durable string store. storage.Store satisfies it.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Keys written by the controller.
const (
	KeyAuthToken        = "dxAuthenticationToken"
	KeyFirstLaunch      = "isNotFirstLaunch"
	KeyPushRegistration = "PushRegistrationId"
)

// DeviceIdentityProvider answers who this device is.
type DeviceIdentityProvider interface {
	DeviceIdentity() domain.DeviceIdentity
}

// JSONPoster sends one JSON request and decodes a JSON object answer.
// connection.HTTPClient satisfies it.
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, body any) (map[string]any, error)
}

// NavigationHandle commands the navigation surface. Navigate is called with
// the navigator lock held and must not call back into the Navigator.
type NavigationHandle interface {
	Navigate(screen domain.Screen)
}

// WebSurface is the outbound side of the embedded web view.
type WebSurface interface {
	// Reload loads url into the surface, replacing stale content.
	Reload(url string)
	// PostMessage delivers an encoded bridge message to the web content.
	PostMessage(data []byte)
}

// URLOpener hands URLs to the host operating system.
type URLOpener interface {
	CanOpen(url string) bool
	Open(ctx context.Context, url string) error
}

// Prompt is an explicit confirm/cancel question put to the user.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

// Prompter asks the user to confirm an action. It returns true only for
// the confirm choice.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) bool
}

// ConnectivitySource delivers connectivity reports serially.
type ConnectivitySource interface {
	// Events is closed when the source stops.
	Events() <-chan domain.ConnectivityState
	// Current reports the present state if the source can tell.
	Current(ctx context.Context) (domain.ConnectivityState, bool)
}

// Handshaker performs the device registration handshake.
type Handshaker interface {
	Register(ctx context.Context) (string, error)
}
