package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/cli/output"
	"github.com/yndnr/dxshell-go/internal/infra/buildinfo"
	"github.com/yndnr/dxshell-go/internal/infra/confloader"
	"github.com/yndnr/dxshell-go/internal/shell/config"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "dxshell",
		Usage:   "Native shell controller for a hosted web application",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			RunCommand(),
			RegisterCommand(),
			TokenCommand(),
			PushCommand(),
			BridgeCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
}

// flagKeys maps global flags to the configuration keys they override.
var flagKeys = map[string]string{
	"base-url":       "server.base_url",
	"mode":           "app.mode",
	"storage-engine": "storage.engine",
	"data-dir":       "storage.dir",
	"control-addr":   "control.addr",
	"dry-run-open":   "app.dry_run_open",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			EnvVars: []string{"DXSHELL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Web application base URL (e.g., https://app.example.com)",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "Deployment mode: web, native",
		},
		&cli.StringFlag{
			Name:  "storage-engine",
			Usage: "Storage engine: badger, sqlite, memory",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory for persisted state",
		},
		&cli.StringFlag{
			Name:  "control-addr",
			Usage: "Listen address of the local control server, empty to disable",
		},
		&cli.BoolFlag{
			Name:  "dry-run-open",
			Usage: "Log external URLs instead of opening them",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Confirm external redirects without asking",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Output     string // table, json, yaml
	Yes        bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Output:     c.String("output"),
		Yes:        c.Bool("yes"),
	}
}

// flagOverrides collects the configuration keys set on the command line.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if !c.IsSet(name) {
			continue
		}
		if name == "dry-run-open" {
			overrides[key] = c.Bool(name)
			continue
		}
		overrides[key] = c.String(name)
	}
	return overrides
}

// loadConfig loads configuration from defaults, the config file, the
// environment and the command line, in that order. The loader is returned
// so the file can be reloaded later.
func loadConfig(c *cli.Context) (*config.ShellConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(flagOverrides(c))}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// initLogger initializes the structured logger and installs it as the
// default. Logs go to stderr so command output stays parseable.
func initLogger(cfg *config.ShellConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// setup loads configuration and the logger for a command.
func setup(c *cli.Context) (*config.ShellConfig, *confloader.Loader, logger.Logger, error) {
	cfg, loader, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := initLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, loader, log, nil
}

// printResult writes data in the format chosen by --output.
func printResult(c *cli.Context, data any) error {
	return printAs(c, ParseGlobalFlags(c).Output, data)
}

func printAs(c *cli.Context, name string, data any) error {
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func reader(c *cli.Context) io.Reader {
	if c.App != nil && c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
