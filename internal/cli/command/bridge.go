package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/platform"
)

// bridgeView describes a dispatched bridge message.
type bridgeView struct {
	Function string `json:"function" yaml:"function"`
	Kind     string `json:"kind" yaml:"kind"`
}

// BridgeCommand returns the bridge command.
func BridgeCommand() *cli.Command {
	return &cli.Command{
		Name:      "bridge",
		Usage:     "Dispatch one bridge message as if the web content sent it",
		ArgsUsage: "<json-message>",
		Action:    bridgeDispatch,
	}
}

func bridgeDispatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("bridge: expected one message, got %d arguments", c.NArg())
	}
	raw := c.Args().First()

	cfg, _, log, err := setup(c)
	if err != nil {
		return err
	}
	sh, err := openShell(cfg, log)
	if err != nil {
		return err
	}
	defer sh.close()

	var prompter service.Prompter = platform.NewLinePrompter(reader(c), writer(c))
	if ParseGlobalFlags(c).Yes {
		prompter = platform.StaticPrompter{Answer: true}
	}
	sh.dispatcher(prompter).Handle(c.Context, raw)

	return printResult(c, describeMessage(domain.DecodeBridgeMessage(raw)))
}

func describeMessage(msg domain.BridgeMessage) bridgeView {
	view := bridgeView{Function: msg.Tag()}
	switch msg.(type) {
	case domain.RedirectToExternalPath:
		view.Kind = "redirect"
	case domain.NavigateBack:
		view.Kind = "navigate-back"
	default:
		view.Kind = "unknown"
	}
	return view
}
