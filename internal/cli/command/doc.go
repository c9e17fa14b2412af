// Package command provides the dxshell command definitions.
//
// Commands are built on urfave/cli/v2:
//
//   - root.go: App, global flags, configuration and logger setup
//   - shell.go: wiring of the storage, network and controller components
//   - run.go: the long-running controller with its local control server
//   - session.go: register and token subcommands
//   - push.go: push registration submission
//   - bridge.go: one-shot bridge message dispatch
//   - system.go: version and config subcommands
//
// Commands parse flags, build the components they need, call them, and
// format the result with the output package.
package command
