package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// tokenView is the printable form of the session token.
type tokenView struct {
	Present bool   `json:"present" yaml:"present"`
	Token   string `json:"token" yaml:"token"`
	WebURL  string `json:"web_url" yaml:"web_url"`
}

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:   "register",
		Usage:  "Run the device registration handshake once",
		Action: registerDevice,
	}
}

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Inspect or clear the stored session token",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the stored token (masked unless --reveal)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Print the token in full",
					},
				},
				Action: tokenShow,
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored token",
				Action: tokenClear,
			},
		},
	}
}

// maskURL hides the token carried in a web wrapper URL.
func maskURL(u string) string {
	if !strings.Contains(u, service.TokenQueryParam+"=") {
		return u
	}
	return logger.RedactString(u)
}

func registerDevice(c *cli.Context) error {
	cfg, _, log, err := setup(c)
	if err != nil {
		return err
	}
	sh, err := openShell(cfg, log)
	if err != nil {
		return err
	}
	defer sh.close()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Server.Timeout)
	defer cancel()

	token, err := sh.registrar.Register(ctx)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return printResult(c, tokenView{
		Present: true,
		Token:   logger.RedactString(token),
		WebURL:  maskURL(sh.session.WebWrapperURL()),
	})
}

func tokenShow(c *cli.Context) error {
	cfg, _, log, err := setup(c)
	if err != nil {
		return err
	}
	sh, err := openShell(cfg, log)
	if err != nil {
		return err
	}
	defer sh.close()

	token, ok := sh.session.Token(c.Context)
	view := tokenView{Present: ok, WebURL: sh.session.WebWrapperURL()}
	if ok {
		view.Token = token
	}
	if ok && !c.Bool("reveal") {
		view.Token = logger.RedactString(view.Token)
		view.WebURL = maskURL(view.WebURL)
	}
	return printResult(c, view)
}

func tokenClear(c *cli.Context) error {
	cfg, _, log, err := setup(c)
	if err != nil {
		return err
	}
	sh, err := openShell(cfg, log)
	if err != nil {
		return err
	}
	defer sh.close()

	if err := sh.session.ClearToken(c.Context); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	fmt.Fprintln(writer(c), "token cleared")
	return nil
}
