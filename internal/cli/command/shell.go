package command

import (
	"fmt"

	"github.com/yndnr/dxshell-go/internal/connection"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/platform"
	"github.com/yndnr/dxshell-go/internal/shell/config"
	"github.com/yndnr/dxshell-go/internal/storage"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// shell holds the components shared by every command that talks to the
// backend or touches persisted state.
type shell struct {
	cfg       *config.ShellConfig
	log       logger.Logger
	store     storage.Store
	metrics   *metric.Registry
	identity  *platform.HostIdentity
	client    *connection.HTTPClient
	session   *service.SessionStore
	registrar *service.Registrar
	push      *service.PushGate
}

// openShell builds the shared components. The caller must call close.
func openShell(cfg *config.ShellConfig, log logger.Logger) (*shell, error) {
	store, err := storage.Open(storage.KVConfig{
		Engine:        cfg.Storage.Engine,
		Dir:           cfg.Storage.Dir,
		EncryptionKey: cfg.Storage.EncryptionKey,
		Badger:        storage.DefaultBadgerConfig(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	metrics := metric.NewRegistry()
	if bs, ok := unwrapBadger(store); ok {
		bs.RegisterMetrics(metrics.Registerer())
	}

	identity, err := platform.NewHostIdentity(identityDir(cfg), log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("device identity: %w", err)
	}

	client := connection.NewHTTPClient(cfg.Server.Timeout, connection.WithLogger(log))
	session := service.NewSessionStore(store, cfg.LandingURL(), log)

	return &shell{
		cfg:      cfg,
		log:      log,
		store:    store,
		metrics:  metrics,
		identity: identity,
		client:   client,
		session:  session,
		registrar: service.NewRegistrar(service.RegistrarDeps{
			Session:  session,
			Identity: identity,
			Poster:   client,
			URL:      cfg.RegistrationURL(),
			Timeout:  cfg.Server.Timeout,
			Metrics:  metrics,
			Logger:   log,
		}),
		push: service.NewPushGate(service.PushGateDeps{
			Store:    store,
			Session:  session,
			Identity: identity,
			Poster:   client,
			URL:      cfg.PushURL(),
			Metrics:  metrics,
			Logger:   log,
		}),
	}, nil
}

// dispatcher builds a bridge dispatcher. With yes set every redirect is
// confirmed; otherwise the user is asked on the terminal.
func (s *shell) dispatcher(prompter service.Prompter) *service.Dispatcher {
	return service.NewDispatcher(service.DispatcherDeps{
		Opener:   platform.NewSystemOpener(s.cfg.App.DryRunOpen, s.log),
		Prompter: prompter,
		Metrics:  s.metrics,
		Logger:   s.log,
	}, &service.DispatcherConfig{
		RateLimit: s.cfg.Bridge.RateLimit,
		Burst:     s.cfg.Bridge.Burst,
	})
}

func (s *shell) close() error {
	return s.store.Close()
}

// identityDir is where the device id file lives. The memory engine has no
// directory of its own, so the default data directory is used.
func identityDir(cfg *config.ShellConfig) string {
	if cfg.Storage.Dir != "" {
		return cfg.Storage.Dir
	}
	return config.DefaultStorageDir()
}

func unwrapBadger(store storage.Store) (*storage.BadgerStore, bool) {
	for {
		switch s := store.(type) {
		case *storage.BadgerStore:
			return s, true
		case interface{ Unwrap() storage.Store }:
			store = s.Unwrap()
		default:
			return nil, false
		}
	}
}

