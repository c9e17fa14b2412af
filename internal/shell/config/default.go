package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultRegistrationPath = "/api/client_authentication_token/registerDevice"
	DefaultPushPath         = "/api/global_functions/updatePushRegistration"
	DefaultLandingPath      = "/?view=native_landing&init_native=1"
	DefaultTimeout          = 15 * time.Second

	DefaultMode = "web"

	DefaultStorageEngine = "badger"

	DefaultProbeInterval = 5 * time.Second

	DefaultBridgeRateLimit = 20.0
	DefaultBridgeBurst     = 10

	DefaultRetryMinInterval = 10 * time.Second

	DefaultControlAddr = "127.0.0.1:7480"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultStorageDir returns the per-user data directory.
func DefaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dxshell")
	}
	return filepath.Join(os.TempDir(), "dxshell")
}

// Default returns the default shell configuration.
func Default() *ShellConfig {
	return &ShellConfig{
		Server: ServerSection{
			RegistrationPath: DefaultRegistrationPath,
			PushPath:         DefaultPushPath,
			LandingPath:      DefaultLandingPath,
			Timeout:          DefaultTimeout,
		},
		App: AppSection{
			Mode: DefaultMode,
		},
		Storage: StorageSection{
			Engine: DefaultStorageEngine,
			Dir:    DefaultStorageDir(),
		},
		Connectivity: ConnectivitySection{
			Interval: DefaultProbeInterval,
		},
		Bridge: BridgeSection{
			RateLimit: DefaultBridgeRateLimit,
			Burst:     DefaultBridgeBurst,
		},
		Retry: RetrySection{
			MinInterval: DefaultRetryMinInterval,
		},
		Control: ControlSection{
			Addr: DefaultControlAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// JoinURL joins the server base URL and a path that may carry a query.
func JoinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path == "" {
		return base
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return base + path
}

// RegistrationURL is the device registration endpoint.
func (c *ShellConfig) RegistrationURL() string {
	return JoinURL(c.Server.BaseURL, c.Server.RegistrationPath)
}

// PushURL is the push registration endpoint.
func (c *ShellConfig) PushURL() string {
	return JoinURL(c.Server.BaseURL, c.Server.PushPath)
}

// LandingURL is the page loaded into the web surface, before authentication.
func (c *ShellConfig) LandingURL() string {
	return JoinURL(c.Server.BaseURL, c.Server.LandingPath)
}

// EffectiveProbeURL is the URL the connectivity prober polls.
func (c *ShellConfig) EffectiveProbeURL() string {
	if c.Connectivity.ProbeURL != "" {
		return c.Connectivity.ProbeURL
	}
	return c.Server.BaseURL
}
