package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/infra/buildinfo"
	"github.com/yndnr/dxshell-go/internal/infra/confloader"
	"github.com/yndnr/dxshell-go/internal/infra/shutdown"
	"github.com/yndnr/dxshell-go/internal/platform"
	"github.com/yndnr/dxshell-go/internal/server/httpserver"
	"github.com/yndnr/dxshell-go/internal/shell/config"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// shutdownTimeout bounds the shutdown hooks.
const shutdownTimeout = 10 * time.Second

// RunCommand returns the run command.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run the shell controller until interrupted",
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	cfg, loader, log, err := setup(c)
	if err != nil {
		return err
	}
	log.Info("starting dxshell",
		"version", buildinfo.Version,
		"config", loader.FilePath(),
		"mode", cfg.App.Mode)

	sh, err := openShell(cfg, log)
	if err != nil {
		return err
	}

	mode, err := domain.ParseDeploymentMode(cfg.App.Mode)
	if err != nil {
		sh.close()
		return err
	}

	out := writer(c)
	nav := service.NewNavigator(service.NavigatorDeps{
		Store:     sh.store,
		Session:   sh.session,
		Registrar: sh.registrar,
		Web:       platform.NewConsoleWeb(out),
		Metrics:   sh.metrics,
		Logger:    log,
	}, &service.NavigatorConfig{
		Mode:          mode,
		RetryInterval: cfg.Retry.MinInterval,
	})
	nav.Attach(domain.ScreenInit, platform.NewConsoleScreen(out))

	var prompter service.Prompter = platform.NewLinePrompter(reader(c), out)
	if ParseGlobalFlags(c).Yes {
		prompter = platform.StaticPrompter{Answer: true}
	}
	dispatcher := sh.dispatcher(prompter)

	prober := platform.NewProber(sh.client, &platform.ProberConfig{
		URL:      cfg.EffectiveProbeURL(),
		Interval: cfg.Connectivity.Interval,
	}, log)

	ctx, cancel := context.WithCancel(c.Context)
	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("closing storage")
		return sh.close()
	})
	shutdownHandler.OnShutdown(func(context.Context) error {
		cancel()
		nav.Close()
		return nil
	})

	go func() {
		if err := nav.Run(ctx, prober); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("connectivity loop stopped", "error", err)
		}
	}()
	go func() {
		if err := prober.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("prober stopped", "error", err)
		}
	}()
	go func() {
		screen, err := nav.ResolveEntry(ctx)
		if err != nil {
			log.Warn("entry resolution ended", "error", err)
			return
		}
		log.Info("entry resolved", "screen", screen)
	}()

	if cfg.Control.Addr != "" {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Controller: nav,
			Bridge:     dispatcher,
			Metrics:    sh.metrics,
			Logger:     log,
			Context:    ctx,
		})
		server := httpserver.New(cfg.Control.Addr, router)
		listener, err := server.Listen()
		if err != nil {
			shutdownHandler.Trigger()
			shutdownHandler.Wait()
			return fmt.Errorf("control server: %w", err)
		}
		shutdownHandler.OnShutdown(func(sctx context.Context) error {
			log.Info("shutting down control server")
			err := server.Shutdown(sctx)
			// Open prompts decline once ctx ends.
			cancel()
			return errors.Join(err, router.Wait(sctx))
		})
		go func() {
			log.Info("control server listening", "addr", listener.Addr().String())
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("control server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	if path := loader.FilePath(); path != "" {
		watcher, err := watchConfig(path, loader, log)
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("shell started, press Ctrl+C to stop")
	if err := shutdownHandler.WaitContext(c.Context); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("shell stopped")
	return nil
}

// watchConfig reloads the config file on change and applies the settings
// that can change at runtime. Currently that is the log level.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	watcher.OnChange(func(string) {
		applyReload(loader, log)
	})
	watcher.StartAsync()
	return watcher, nil
}

// applyReload reloads the configuration and applies the log level. A file
// that fails to load or verify is ignored.
func applyReload(loader *confloader.Loader, log logger.Logger) {
	fresh := config.Default()
	if err := loader.Reload(fresh); err != nil {
		log.Warn("config reload failed", "error", err)
		return
	}
	if err := config.Verify(fresh); err != nil {
		log.Warn("reloaded config rejected", "error", err)
		return
	}
	logger.SetLevel(fresh.Log.Level)
	log.Info("config reloaded", "log_level", fresh.Log.Level)
}
