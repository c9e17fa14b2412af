package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/infra/buildinfo"
	"github.com/yndnr/dxshell-go/internal/shell/config"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return printResult(c, buildinfo.Get())
		},
	}
}

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"cfg"},
		Usage:   "Configuration commands",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	format := ParseGlobalFlags(c).Output
	if format == "" || format == "table" {
		// Nested sections do not fit a table.
		return printAs(c, "yaml", config.Sanitize(cfg))
	}
	return printResult(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	if _, _, err := loadConfig(c); err != nil {
		return err
	}
	fmt.Fprintln(writer(c), "configuration is valid")
	return nil
}
