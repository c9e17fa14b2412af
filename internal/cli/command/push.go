package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/core/domain"
)

// pushView reports the outcome of a push registration.
type pushView struct {
	Submitted bool   `json:"submitted" yaml:"submitted"`
	Status    string `json:"status" yaml:"status"`
}

// PushCommand returns the push command.
func PushCommand() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Submit the push registration id once per device",
		ArgsUsage: "<registration-id>",
		Action:    pushSubmit,
	}
}

func pushSubmit(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("push: expected one registration id, got %d arguments", c.NArg())
	}

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

	err = sh.push.Submit(ctx, c.Args().First())
	switch {
	case err == nil:
		return printResult(c, pushView{Submitted: true, Status: "registered"})
	case domain.IsSoft(err):
		return printResult(c, pushView{Submitted: false, Status: "already registered"})
	default:
		return fmt.Errorf("push: %w", err)
	}
}
