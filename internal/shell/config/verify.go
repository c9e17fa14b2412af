package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/storage"
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ShellConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyApp(&cfg.App),
		verifyStorage(&cfg.Storage),
		verifyConnectivity(&cfg.Connectivity),
		verifyBridge(&cfg.Bridge),
		verifyControl(&cfg.Control),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	if err := verifyHTTPURL("server.base_url", cfg.BaseURL); err != nil {
		return err
	}
	if cfg.RegistrationPath == "" {
		return errors.New("server.registration_path is required")
	}
	if cfg.PushPath == "" {
		return errors.New("server.push_path is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	return nil
}

func verifyApp(cfg *AppSection) error {
	if _, err := domain.ParseDeploymentMode(cfg.Mode); err != nil {
		return fmt.Errorf("app.mode: %w", err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case storage.EngineBadger, storage.EngineSQLite:
		if cfg.Dir == "" {
			return fmt.Errorf("storage.dir is required for engine %q", cfg.Engine)
		}
	case storage.EngineMemory:
	default:
		return fmt.Errorf("storage.engine %q is not one of badger, sqlite, memory", cfg.Engine)
	}
	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) < storage.MinKeyLength {
		return fmt.Errorf("storage.encryption_key must be at least %d bytes", storage.MinKeyLength)
	}
	return nil
}

func verifyConnectivity(cfg *ConnectivitySection) error {
	if cfg.ProbeURL != "" {
		if err := verifyHTTPURL("connectivity.probe_url", cfg.ProbeURL); err != nil {
			return err
		}
	}
	if cfg.Interval <= 0 {
		return errors.New("connectivity.interval must be positive")
	}
	return nil
}

func verifyBridge(cfg *BridgeSection) error {
	if cfg.RateLimit <= 0 {
		return errors.New("bridge.rate_limit must be positive")
	}
	if cfg.Burst < 1 {
		return errors.New("bridge.burst must be at least 1")
	}
	return nil
}

func verifyControl(cfg *ControlSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("control.addr: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func verifyHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", key)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", key)
	}
	return nil
}
