package config

import "time"

// ShellConfig is the root configuration for dxshell.
type ShellConfig struct {
	Server       ServerSection       `koanf:"server" json:"server" yaml:"server"`
	App          AppSection          `koanf:"app" json:"app" yaml:"app"`
	Storage      StorageSection      `koanf:"storage" json:"storage" yaml:"storage"`
	Connectivity ConnectivitySection `koanf:"connectivity" json:"connectivity" yaml:"connectivity"`
	Bridge       BridgeSection       `koanf:"bridge" json:"bridge" yaml:"bridge"`
	Retry        RetrySection        `koanf:"retry" json:"retry" yaml:"retry"`
	Control      ControlSection      `koanf:"control" json:"control" yaml:"control"`
	Log          LogSection          `koanf:"log" json:"log" yaml:"log"`
}

// ServerSection locates the backend that hosts the web application.
type ServerSection struct {
	BaseURL          string        `koanf:"base_url" json:"base_url" yaml:"base_url"`
	RegistrationPath string        `koanf:"registration_path" json:"registration_path" yaml:"registration_path"`
	PushPath         string        `koanf:"push_path" json:"push_path" yaml:"push_path"`
	LandingPath      string        `koanf:"landing_path" json:"landing_path" yaml:"landing_path"`
	Timeout          time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// AppSection configures the shell itself.
type AppSection struct {
	// Mode is "web" (show the wrapped web app) or "native" (show the placeholder).
	Mode string `koanf:"mode" json:"mode" yaml:"mode"`
	// DryRunOpen logs external URLs instead of handing them to the OS.
	DryRunOpen bool `koanf:"dry_run_open" json:"dry_run_open" yaml:"dry_run_open"`
}

// StorageSection configures the durable key-value store.
type StorageSection struct {
	Engine        string `koanf:"engine" json:"engine" yaml:"engine"`
	Dir           string `koanf:"dir" json:"dir" yaml:"dir"`
	EncryptionKey string `koanf:"encryption_key" json:"encryption_key" yaml:"encryption_key"`
}

// ConnectivitySection configures the reachability prober.
type ConnectivitySection struct {
	// ProbeURL defaults to server.base_url when empty.
	ProbeURL string        `koanf:"probe_url" json:"probe_url" yaml:"probe_url"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// BridgeSection limits inbound messages from the web surface.
type BridgeSection struct {
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `koanf:"burst" json:"burst" yaml:"burst"`
}

// RetrySection limits handshakes triggered by reconnects.
type RetrySection struct {
	MinInterval time.Duration `koanf:"min_interval" json:"min_interval" yaml:"min_interval"`
}

// ControlSection configures the local control server, which also serves
// /metrics. An empty Addr disables it.
type ControlSection struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
