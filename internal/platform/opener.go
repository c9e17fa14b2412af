package platform

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// openableSchemes are the schemes handed to the system opener.
var openableSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// SystemOpener opens URLs with the desktop's default handler.
type SystemOpener struct {
	goos   string
	dryRun bool
	logger logger.Logger

	// run starts the command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewSystemOpener creates a SystemOpener. In dry-run mode Open only logs.
func NewSystemOpener(dryRun bool, log logger.Logger) *SystemOpener {
	if log == nil {
		log = logger.Default()
	}
	return &SystemOpener{
		goos:   runtime.GOOS,
		dryRun: dryRun,
		logger: log.With("component", "opener"),
		run:    startCommand,
	}
}

// CanOpen reports whether target is a URL the opener accepts.
func (o *SystemOpener) CanOpen(target string) bool {
	u, err := url.Parse(target)
	if err != nil || !openableSchemes[u.Scheme] {
		return false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.Host != ""
	}
	return u.Opaque != "" || u.Path != ""
}

// Open hands target to the system opener.
func (o *SystemOpener) Open(ctx context.Context, target string) error {
	if !o.CanOpen(target) {
		return domain.ErrInvalidArgument.WithDetails("cannot open " + target)
	}
	if o.dryRun {
		o.logger.Info("dry run, not opening url", "url", target)
		return nil
	}

	name, args, err := openCommand(o.goos, target)
	if err != nil {
		return err
	}
	if err := o.run(ctx, name, args...); err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	return nil
}

// openCommand returns the program and arguments that open target on goos.
func openCommand(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	default:
		return "", nil, fmt.Errorf("no url opener for %s", goos)
	}
}

func startCommand(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Not tied to ctx: the opener must outlive the request that asked for it.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// The opener hands off to the desktop and exits; reap it in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}
